package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/image-eraser/internal/storage"
	"github.com/menta2k/image-eraser/internal/utils"
	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/selector"
	"github.com/menta2k/image-eraser/pkg/types"
)

// uploadOptions are the optional fields accepted with an image
type uploadOptions struct {
	ImageURL   string            `json:"image_url"`
	Display    string            `json:"display"`
	Detect     bool              `json:"detect"`
	Detections []types.Detection `json:"detections"`
}

// HandleUpload creates a session from a multipart "file" upload or a JSON
// body naming an image_url.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request uploadOptions
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	img, _, err := h.eraser.Load(request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.createSession(w, r, request.ImageURL, img, request)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	limit := int64(h.config.Server.MaxUploadMB) << 20
	fileData, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if int64(len(fileData)) > limit {
		h.writeError(w, fmt.Sprintf("File too large (max %dMB)", h.config.Server.MaxUploadMB), http.StatusBadRequest)
		return
	}

	opts := uploadOptions{
		Display: r.FormValue("display"),
		Detect:  r.FormValue("detect") == "true",
	}
	if raw := r.FormValue("detections"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Detections); err != nil {
			h.writeError(w, "Invalid detections: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	img, _, err := h.eraser.LoadFromReader(bytes.NewReader(fileData))
	if err != nil {
		h.writeError(w, "Invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.createSession(w, r, header.Filename, img, opts)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request, filename string, img image.Image, opts uploadOptions) {
	natural := geometry.Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	display := natural
	if opts.Display != "" {
		dw, dh, err := utils.ParseDimensions(opts.Display)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		display = geometry.Size{Width: dw, Height: dh}
	}

	dets := opts.Detections
	if dets == nil && (opts.Detect || h.config.Server.DetectOnLoad) {
		found, err := h.eraser.Detect(r.Context(), img)
		if err != nil {
			h.writeError(w, "Detection failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		dets = found
	}

	// Use filename (without extension) as session name, with timestamp for uniqueness
	base := utils.SanitizeFilename(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	sessionID := fmt.Sprintf("%s_%d", base, time.Now().UnixNano())

	entry := storage.NewEntry(sessionID, filename, img, h.eraser.SessionOptions())
	var summary SessionSummary
	err := entry.Do(func(s *selector.Session) error {
		if err := s.Load(selector.Source{Path: filename, Size: natural}); err != nil {
			return err
		}
		if err := s.Resize(display); err != nil {
			return err
		}
		if err := s.SetDetections(dets); err != nil {
			return err
		}
		summary = summarize(entry, s)
		return nil
	})
	if err != nil {
		h.writeError(w, "Failed to start session: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.sessionStore.Set(sessionID, entry); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, storage.ErrStoreFull) {
			code = http.StatusServiceUnavailable
		}
		h.writeError(w, err.Error(), code)
		return
	}

	slog.Info("Session created", "session_id", sessionID, "natural", natural.String(),
		"display", display.String(), "detections", len(dets))
	h.writeJSONStatus(w, http.StatusCreated, summary)
}
