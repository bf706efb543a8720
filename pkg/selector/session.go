// Package selector implements the interactive selection surface: it routes
// pointer input either to detection hit testing (Auto) or to the brush (Manual)
// and hands finished selections to an Emitter.
//
// A Session is not safe for concurrent use. Every method runs to completion
// before returning, so a Clear is always fully applied before a later paint or
// Submit reads the mask.
package selector

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/menta2k/image-eraser/pkg/brush"
	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/overlay"
	"github.com/menta2k/image-eraser/pkg/types"
)

var (
	// ErrEmptyMask is returned by Submit when nothing has been painted.
	ErrEmptyMask = errors.New("mask is empty, paint the area to erase first")
	// ErrWrongMode is returned by Submit outside Manual mode.
	ErrWrongMode = errors.New("submit is only available in manual mode")
	// ErrInvalidImage is returned by Load for an image without usable dimensions.
	ErrInvalidImage = errors.New("invalid image")
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")
)

// Emitter receives each finished selection.
type Emitter func(types.Selection)

// Source identifies the loaded image.
type Source struct {
	// Path is the server-side path or URL the image was loaded from.
	Path string
	// Size is the natural (decoded) size.
	Size geometry.Size
}

// Options configures a Session.
type Options struct {
	// AllowEmptySubmit lets Submit emit an all-keep mask instead of failing.
	AllowEmptySubmit bool
	// Interpolate fills gaps between sparse move samples.
	Interpolate bool
	BrushSize   int
	MaskFormat  mask.Format
	Style       overlay.Style
	Logger      *slog.Logger
}

// DefaultOptions returns the options used by New when none are given.
func DefaultOptions() Options {
	return Options{
		BrushSize:  brush.DefaultSize,
		MaskFormat: mask.FormatPNG,
		Style:      overlay.DefaultStyle(),
	}
}

// Session holds the state of one authoring surface.
type Session struct {
	opts   Options
	emit   Emitter
	logger *slog.Logger
	table  map[Mode]handlers

	source     Source
	loaded     bool
	tf         geometry.Transform
	ready      bool
	detections []types.Detection
	selected   int
	mode       Mode
	brushSize  int

	layer   *overlay.Layer
	raster  *mask.Raster
	painter *brush.Painter
}

// New creates a session. emit may be nil.
func New(emit Emitter, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaskFormat == "" {
		opts.MaskFormat = mask.FormatPNG
	}
	if opts.Style == (overlay.Style{}) {
		opts.Style = overlay.DefaultStyle()
	}
	if opts.BrushSize == 0 {
		opts.BrushSize = brush.DefaultSize
	}
	s := &Session{
		opts:      opts,
		emit:      emit,
		logger:    opts.Logger,
		selected:  -1,
		mode:      ModeAuto,
		brushSize: brush.ClampSize(opts.BrushSize),
	}
	s.table = s.buildHandlers()
	return s
}

// Load starts a new image. Everything tied to the previous image is dropped:
// detections, selection, mask, layout. The mode returns to Auto. Interaction
// stays disabled until Resize reports the display size.
func (s *Session) Load(src Source) error {
	if !src.Size.Valid() {
		return fmt.Errorf("%w: natural size %s", ErrInvalidImage, src.Size)
	}
	raster, err := mask.New(src.Size.Width, src.Size.Height)
	if err != nil {
		return fmt.Errorf("failed to allocate mask: %w", err)
	}

	s.source = src
	s.loaded = true
	s.raster = raster
	s.detections = nil
	s.selected = -1
	s.mode = ModeAuto
	s.ready = false
	s.tf = geometry.Transform{}
	s.layer = nil
	s.painter = nil

	s.logger.Debug("image loaded", "path", src.Path, "natural", src.Size.String())
	return nil
}

// Resize recomputes the transform and overlay for a new display size and
// redraws the current mode. The mask is untouched and any stroke in progress
// ends.
func (s *Session) Resize(display geometry.Size) error {
	if !s.loaded {
		s.logger.Debug("resize ignored, no image loaded", "display", display.String())
		return nil
	}
	tf, err := geometry.New(s.source.Size, display)
	if err != nil {
		s.ready = false
		return err
	}
	layer, err := overlay.NewWithStyle(display, s.opts.Style)
	if err != nil {
		s.ready = false
		return err
	}

	s.tf = tf
	s.layer = layer
	if s.painter == nil {
		s.painter = brush.NewWithConfig(layer, s.raster, tf, brush.Config{
			Size:        s.brushSize,
			Interpolate: s.opts.Interpolate,
		})
	} else {
		s.painter.Rebind(layer, tf)
	}
	s.ready = true
	s.render()

	s.logger.Debug("layout updated", "display", display.String(),
		"scale_x", tf.ScaleX(), "scale_y", tf.ScaleY())
	return nil
}

// SetDetections replaces the detection list and clears the selection.
func (s *Session) SetDetections(dets []types.Detection) error {
	if !s.loaded {
		return ErrNoImage
	}
	s.detections = append([]types.Detection(nil), dets...)
	s.selected = -1
	if s.mode == ModeAuto {
		s.render()
	}
	s.logger.Debug("detections set", "count", len(dets))
	return nil
}

// SetMode switches between Auto and Manual. The mask is never modified.
func (s *Session) SetMode(m Mode) error {
	h, ok := s.table[m]
	if !ok {
		return fmt.Errorf("unknown mode: %v", m)
	}
	if m == s.mode {
		return nil
	}
	s.mode = m
	if s.painter != nil {
		s.painter.Up()
	}
	h.enter()
	s.logger.Debug("mode changed", "mode", m.String())
	return nil
}

// Click handles a click at display point p.
func (s *Session) Click(p geometry.Point) {
	if h := s.route("click"); h != nil && h.click != nil {
		h.click(p)
	}
}

// Down handles a pointer press at display point p.
func (s *Session) Down(p geometry.Point) {
	if h := s.route("down"); h != nil && h.down != nil {
		h.down(p)
	}
}

// Move handles pointer motion to display point p.
func (s *Session) Move(p geometry.Point) {
	if h := s.route("move"); h != nil && h.move != nil {
		h.move(p)
	}
}

// Up handles a pointer release.
func (s *Session) Up() {
	if h := s.route("up"); h != nil && h.up != nil {
		h.up()
	}
}

// Leave handles the pointer leaving the canvas. It ends a stroke like Up.
func (s *Session) Leave() {
	s.Up()
}

// SetBrushSize sets the brush diameter, clamped to the allowed range, and
// returns the value applied.
func (s *Session) SetBrushSize(size int) int {
	s.brushSize = brush.ClampSize(size)
	if s.painter != nil {
		s.painter.SetSize(s.brushSize)
	}
	return s.brushSize
}

// ClearMask resets the mask to all keep and wipes brush feedback.
func (s *Session) ClearMask() {
	if !s.loaded {
		return
	}
	if s.ready && s.mode == ModeManual {
		s.painter.Clear()
		return
	}
	s.raster.Reset()
}

// Submit emits the painted mask as a RasterSelection. It is only valid in
// Manual mode.
func (s *Session) Submit() error {
	if !s.loaded {
		return ErrNoImage
	}
	return s.table[s.mode].submit()
}

// Mode returns the current mode.
func (s *Session) Mode() Mode { return s.mode }

// SelectedIndex returns the highlighted detection, or -1.
func (s *Session) SelectedIndex() int { return s.selected }

// BrushSize returns the current brush diameter.
func (s *Session) BrushSize() int { return s.brushSize }

// Painting reports whether a brush stroke is in progress.
func (s *Session) Painting() bool { return s.painter != nil && s.painter.Active() }

// Ready reports whether an image is loaded and laid out.
func (s *Session) Ready() bool { return s.ready }

// Source returns the loaded image.
func (s *Session) Source() Source { return s.source }

// Detections returns a copy of the detection list.
func (s *Session) Detections() []types.Detection {
	return append([]types.Detection(nil), s.detections...)
}

// Overlay returns the display layer, or nil before layout.
func (s *Session) Overlay() *overlay.Layer { return s.layer }

// Mask returns the native-resolution mask, or nil before Load.
func (s *Session) Mask() *mask.Raster { return s.raster }

// Transform returns the current display transform.
func (s *Session) Transform() (geometry.Transform, error) {
	if !s.ready {
		return geometry.Transform{}, geometry.ErrNotReady
	}
	return s.tf, nil
}

// BoxMask rasterizes a box selection at the loaded image's natural size.
func (s *Session) BoxMask(sel types.BoxSelection) (*mask.Raster, error) {
	if !s.loaded {
		return nil, ErrNoImage
	}
	return mask.FromRect(s.source.Size.Width, s.source.Size.Height, sel.Rect())
}

func (s *Session) route(event string) *handlers {
	if !s.ready {
		s.logger.Debug("event ignored, layout not ready", "event", event)
		return nil
	}
	h := s.table[s.mode]
	return &h
}

func (s *Session) render() {
	if !s.ready {
		return
	}
	switch s.mode {
	case ModeAuto:
		s.layer.DrawDetections(s.detections, s.tf, s.selected)
	case ModeManual:
		s.layer.ProjectMask(s.raster.Image(), s.painter.Color())
	}
}

func (s *Session) enterAuto() {
	s.selected = -1
	s.render()
}

func (s *Session) enterManual() {
	s.selected = -1
	s.render()
}

func (s *Session) selectAt(p geometry.Point) {
	idx := overlay.HitTest(s.detections, s.tf, p)
	if idx < 0 {
		s.logger.Debug("click missed all detections", "x", p.X, "y", p.Y)
		return
	}
	s.selected = idx
	s.render()

	d := s.detections[idx]
	s.logger.Info("detection selected", "index", idx, "label", d.Label, "conf", d.Confidence)
	s.send(types.BoxSelection{X1: d.Box.X1, Y1: d.Box.Y1, X2: d.Box.X2, Y2: d.Box.Y2})
}

func (s *Session) submitMask() error {
	if s.painter != nil {
		s.painter.Up()
	}
	if !s.opts.AllowEmptySubmit && s.raster.IsEmpty() {
		return ErrEmptyMask
	}
	sel, err := s.raster.Selection(s.opts.MaskFormat)
	if err != nil {
		return err
	}
	s.logger.Info("mask submitted", "format", sel.Format,
		"width", sel.Width, "height", sel.Height, "erased", s.raster.EraseCount())
	s.send(sel)
	return nil
}

func (s *Session) send(sel types.Selection) {
	if s.emit != nil {
		s.emit(sel)
	}
}
