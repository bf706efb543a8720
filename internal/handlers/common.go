package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	imageeraser "github.com/menta2k/image-eraser"
	"github.com/menta2k/image-eraser/internal/config"
	"github.com/menta2k/image-eraser/internal/storage"
	"github.com/menta2k/image-eraser/pkg/selector"
	"github.com/menta2k/image-eraser/pkg/types"
)

type Handler struct {
	sessionStore *storage.SessionStore
	eraser       *imageeraser.Eraser
	config       *config.Config
}

func New(eraser *imageeraser.Eraser) *Handler {
	cfg := eraser.Config()
	return &Handler{
		sessionStore: storage.New(cfg.Server.MaxSessions),
		eraser:       eraser,
		config:       cfg,
	}
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", h.HandleSessions)
	mux.HandleFunc("/api/sessions/", h.HandleSessionDetail)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// SessionSummary is the JSON view of a stored session
type SessionSummary struct {
	ID         string            `json:"session_id"`
	Filename   string            `json:"filename"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Display    [2]int            `json:"display"`
	Mode       string            `json:"mode"`
	BrushSize  int               `json:"brush_size"`
	Selected   int               `json:"selected"`
	Detections []types.Detection `json:"detections"`
	MaskErased int               `json:"mask_erased"`
	CreatedAt  time.Time         `json:"created_at"`
	Selections []SelectionJSON   `json:"selections,omitempty"`
	Painting   bool              `json:"painting"`
}

// SelectionJSON is the wire form of an emitted selection. Raster data is
// base64 encoded.
type SelectionJSON struct {
	Kind   string              `json:"kind"`
	Box    *types.BoxSelection `json:"box,omitempty"`
	Format string              `json:"format,omitempty"`
	Width  int                 `json:"width,omitempty"`
	Height int                 `json:"height,omitempty"`
	Data   string              `json:"data,omitempty"`
}

func toSelectionJSON(sels []types.Selection) []SelectionJSON {
	out := make([]SelectionJSON, 0, len(sels))
	for _, sel := range sels {
		switch s := sel.(type) {
		case types.BoxSelection:
			out = append(out, SelectionJSON{Kind: s.Kind(), Box: &s})
		case types.RasterSelection:
			out = append(out, SelectionJSON{
				Kind:   s.Kind(),
				Format: s.Format,
				Width:  s.Width,
				Height: s.Height,
				Data:   base64.StdEncoding.EncodeToString(s.Data),
			})
		}
	}
	return out
}

func summarize(entry *storage.Entry, s *selector.Session) SessionSummary {
	src := s.Source()
	sum := SessionSummary{
		ID:         entry.ID,
		Filename:   entry.Filename,
		Width:      src.Size.Width,
		Height:     src.Size.Height,
		Mode:       s.Mode().String(),
		BrushSize:  s.BrushSize(),
		Selected:   s.SelectedIndex(),
		Detections: s.Detections(),
		CreatedAt:  entry.CreatedAt,
		Painting:   s.Painting(),
	}
	if layer := s.Overlay(); layer != nil {
		sum.Display = [2]int{layer.Size().Width, layer.Size().Height}
	}
	if m := s.Mask(); m != nil {
		sum.MaskErased = m.EraseCount()
	}
	return sum
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

// writeJSONStatus encodes before writing so an encode failure can still
// become a 500.
func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Error("Unable to write JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*storage.Entry, bool) {
	entry, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return entry, true
}
