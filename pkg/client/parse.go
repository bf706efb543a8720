package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/image-eraser/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseReport parses a model reply into a DetectionReport. Replies that are
// not JSON yield an empty report with an explanatory description rather than
// an error, so a chatty model never fails a detection run.
func ParseReport(raw string) (*types.DetectionReport, error) {
	raw = SanitizeModelJSON(raw)

	switch {
	case strings.HasPrefix(raw, "["):
		var objects []types.DetectedObject
		if err := json.Unmarshal([]byte(raw), &objects); err != nil {
			return fallbackReport("Failed to parse model response"), nil
		}
		return &types.DetectionReport{Objects: objects}, nil
	case strings.HasPrefix(raw, "{"):
		var report types.DetectionReport
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return fallbackReport("Failed to parse model response"), nil
		}
		return &report, nil
	default:
		return fallbackReport("Model returned non-JSON response"), nil
	}
}

func fallbackReport(description string) *types.DetectionReport {
	return &types.DetectionReport{Objects: []types.DetectedObject{}, Description: description}
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from a JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...} or [...], whichever opens first
	open, close := "{", "}"
	obj := strings.Index(raw, "{")
	arr := strings.Index(raw, "[")
	if arr >= 0 && (obj < 0 || arr < obj) {
		open, close = "[", "]"
	}
	if start := strings.Index(raw, open); start >= 0 {
		if end := strings.LastIndex(raw, close); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
