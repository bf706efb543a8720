package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-eraser/internal/storage"
	"github.com/menta2k/image-eraser/pkg/brush"
	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/processing"
	"github.com/menta2k/image-eraser/pkg/selector"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		entries := h.sessionStore.GetAll()
		sessionList := make([]SessionSummary, 0, len(entries))
		for _, entry := range entries {
			_ = entry.Do(func(s *selector.Session) error {
				sessionList = append(sessionList, summarize(entry, s))
				return nil
			})
		}
		sort.Slice(sessionList, func(i, j int) bool {
			return sessionList[i].CreatedAt.Before(sessionList[j].CreatedAt)
		})
		h.writeJSON(w, sessionList)
	case "POST":
		h.HandleUpload(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSessionDetail serves /api/sessions/{id} and its sub-resources:
// events, overlay.png, mask.png, preview.png.
func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID, resource, _ := strings.Cut(rest, "/")

	entry, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch resource {
	case "":
		switch r.Method {
		case "GET":
			var summary SessionSummary
			_ = entry.Do(func(s *selector.Session) error {
				summary = summarize(entry, s)
				return nil
			})
			h.writeJSON(w, summary)
		case "DELETE":
			h.sessionStore.Delete(sessionID)
			w.WriteHeader(http.StatusNoContent)
		default:
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "events":
		if r.Method != "POST" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleEvents(w, r, entry)
	case "overlay.png", "mask.png", "mask.webp", "preview.png":
		if r.Method != "GET" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleImage(w, r, entry, resource)
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}

// handleEvents applies a JSON array of events in order and returns the
// session state plus every selection emitted along the way. Events applied
// before a failing one stay applied, and their selections stay queued until
// the next successful batch delivers them.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request, entry *storage.Entry) {
	var events []selector.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var summary SessionSummary
	applyErr := entry.Do(func(s *selector.Session) error {
		err := s.ApplyAll(events)
		summary = summarize(entry, s)
		return err
	})
	if applyErr != nil {
		h.writeError(w, applyErr.Error(), eventErrorStatus(applyErr))
		return
	}
	summary.Selections = toSelectionJSON(entry.TakeSelections())
	h.writeJSON(w, summary)
}

func eventErrorStatus(err error) int {
	switch {
	case errors.Is(err, selector.ErrEmptyMask), errors.Is(err, selector.ErrWrongMode),
		errors.Is(err, selector.ErrNoImage), errors.Is(err, geometry.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request, entry *storage.Entry, resource string) {
	var (
		buf         bytes.Buffer
		contentType = "image/png"
		status      = http.StatusOK
	)
	err := entry.Do(func(s *selector.Session) error {
		switch resource {
		case "overlay.png":
			layer := s.Overlay()
			if layer == nil {
				status = http.StatusConflict
				return geometry.ErrNotReady
			}
			img := layer.Image()
			if r.URL.Query().Get("composite") == "true" {
				return imaging.Encode(&buf, processing.NewProcessor().ComposeOverlay(entry.Image(), img), imaging.PNG)
			}
			return imaging.Encode(&buf, img, imaging.PNG)
		case "mask.png":
			return s.Mask().Encode(&buf, mask.FormatPNG)
		case "mask.webp":
			contentType = "image/webp"
			return s.Mask().Encode(&buf, mask.FormatWebP)
		case "preview.png":
			out, err := processing.NewProcessor().MaskPreview(entry.Image(), s.Mask().Image(), brush.FeedbackColor)
			if err != nil {
				return err
			}
			return imaging.Encode(&buf, out, imaging.PNG)
		}
		return nil
	})
	if err != nil {
		if status == http.StatusOK {
			status = http.StatusInternalServerError
		}
		h.writeError(w, "Failed to render "+resource+": "+err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write image response", "resource", resource, "err", err)
	}
}
