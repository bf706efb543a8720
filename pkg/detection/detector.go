package detection

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/menta2k/image-eraser/pkg/client"
	"github.com/menta2k/image-eraser/pkg/processing"
	"github.com/menta2k/image-eraser/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks for every removable object with a normalized box
const DefaultPrompt = `You are an object locator for a photo clean-up tool.

Return JSON only:
{
  "objects": [
    {
      "label": "string",
      "confidence": 0.0,
      "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
    }
  ],
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- List every distinct object a user might want to remove: people, animals, vehicles, signs, wires, litter, furniture.
- Each box should tightly include one object. Do not merge neighbouring objects.
- Order objects from most to least confident.
- Labels: lowercase, one or two words, no punctuation.
- If nothing is found, return {"objects": [], "description": "..."}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Detector finds objects using a vision model
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]types.Detection, error)
}

// Config holds model detector settings
type Config struct {
	Model         string
	Prompt        string
	MinConfidence float64
	MaxObjects    int
	// MaxImageDim bounds the longest side sent to the model
	MaxImageDim int
	JPEGQuality int
}

// DefaultConfig returns sensible defaults for a local vision model
func DefaultConfig() Config {
	return Config{
		Model:         "qwen2.5vl:7b",
		Prompt:        DefaultPrompt,
		MinConfidence: 0.25,
		MaxObjects:    20,
		MaxImageDim:   1024,
		JPEGQuality:   85,
	}
}

// ModelDetector handles object detection using vision models
type ModelDetector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    Config
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient) *ModelDetector {
	return NewDetectorWithConfig(client, DefaultConfig())
}

// NewDetectorWithConfig creates a detector with custom settings
func NewDetectorWithConfig(client client.VisionClient, config Config) *ModelDetector {
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	return &ModelDetector{client: client, processor: processing.NewProcessor(), config: config}
}

// Detect sends img to the model and returns detections in image-space pixels
func (d *ModelDetector) Detect(ctx context.Context, img image.Image) ([]types.Detection, error) {
	b64, err := d.processor.PrepareImageForModel(img, "jpg", d.config.MaxImageDim, d.config.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	report, err := d.client.AnalyzeImage(ctx, d.config.Model, d.config.Prompt, b64)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	b := img.Bounds()
	return d.ToDetections(report, b.Dx(), b.Dy()), nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *ModelDetector) TestVision(ctx context.Context, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, d.config.Model, SimpleTestPrompt, imageB64)
}

// ToDetections converts a model report with normalized boxes into image-space
// detections. Model order is kept; entries that are empty, labelled "none" or
// below the confidence floor are dropped.
func (d *ModelDetector) ToDetections(report *types.DetectionReport, imgW, imgH int) []types.Detection {
	if report == nil {
		return nil
	}
	dets := make([]types.Detection, 0, len(report.Objects))
	for _, obj := range report.Objects {
		label := normalizeLabel(obj.Label)
		if label == "" || label == "none" {
			continue
		}
		conf := clamp(obj.Confidence, 0, 1)
		if conf < d.config.MinConfidence {
			continue
		}
		box := normalizeBox(obj.Box, imgW, imgH)
		if box.W <= 0 || box.H <= 0 {
			continue
		}
		dets = append(dets, types.Detection{
			Box:        toPixels(box, imgW, imgH),
			Label:      label,
			Confidence: conf,
		})
		if d.config.MaxObjects > 0 && len(dets) == d.config.MaxObjects {
			break
		}
	}
	return dets
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox ensures box coordinates are within [0,1] bounds, converting
// pixel boxes some models return despite the prompt
func normalizeBox(b types.Box, imgW, imgH int) types.Box {
	if imgW > 0 && imgH > 0 && (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) {
		b = types.Box{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.X+b.W, 0, 1) - x,
		H: clamp(b.Y+b.H, 0, 1) - y,
	}
}

// toPixels maps a normalized box onto whole image pixels
func toPixels(b types.Box, imgW, imgH int) types.Rect {
	w, h := float64(imgW), float64(imgH)
	return types.Rect{
		X1: math.Round(b.X * w),
		Y1: math.Round(b.Y * h),
		X2: math.Round((b.X + b.W) * w),
		Y2: math.Round((b.Y + b.H) * h),
	}
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
