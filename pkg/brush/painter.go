// Package brush turns pointer drags into paired stamps: a feedback circle on
// the display overlay and the geometrically equivalent ellipse on the
// native-resolution mask.
package brush

import (
	"image/color"
	"math"

	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/overlay"
)

// Brush size limits, in display pixels (diameter).
const (
	MinSize     = 5
	MaxSize     = 50
	DefaultSize = 20
)

// FeedbackColor is the translucent pink used for strokes on the overlay.
var FeedbackColor = color.NRGBA{236, 72, 153, 128}

// Config holds brush settings.
type Config struct {
	Size  int
	Color color.NRGBA
	// Interpolate stamps along the segment between consecutive move samples.
	// When false, each sample gets exactly one stamp and fast drags leave gaps.
	Interpolate bool
}

// DefaultConfig returns a 20px brush without interpolation.
func DefaultConfig() Config {
	return Config{Size: DefaultSize, Color: FeedbackColor}
}

// Painter paints onto one overlay layer and one mask raster.
type Painter struct {
	layer  *overlay.Layer
	raster *mask.Raster
	tf     geometry.Transform
	config Config
	active bool
	last   geometry.Point
}

// New creates a painter with the default configuration.
func New(layer *overlay.Layer, raster *mask.Raster, tf geometry.Transform) *Painter {
	return NewWithConfig(layer, raster, tf, DefaultConfig())
}

// NewWithConfig creates a painter with a custom configuration.
func NewWithConfig(layer *overlay.Layer, raster *mask.Raster, tf geometry.Transform, config Config) *Painter {
	config.Size = ClampSize(config.Size)
	if config.Color.A == 0 {
		config.Color = FeedbackColor
	}
	return &Painter{layer: layer, raster: raster, tf: tf, config: config}
}

// ClampSize limits a brush size to [MinSize, MaxSize].
func ClampSize(size int) int {
	if size < MinSize {
		return MinSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// SetSize changes the brush diameter for subsequent stamps.
func (p *Painter) SetSize(size int) {
	p.config.Size = ClampSize(size)
}

// Size returns the current brush diameter.
func (p *Painter) Size() int {
	return p.config.Size
}

// Color returns the overlay feedback colour.
func (p *Painter) Color() color.NRGBA {
	return p.config.Color
}

// Active reports whether a stroke is in progress.
func (p *Painter) Active() bool {
	return p.active
}

// Rebind points the painter at a new overlay and transform after a resize.
// Any stroke in progress ends; the mask raster is kept.
func (p *Painter) Rebind(layer *overlay.Layer, tf geometry.Transform) {
	p.layer = layer
	p.tf = tf
	p.active = false
}

// Down starts a stroke and stamps once at the pointer position.
func (p *Painter) Down(pt geometry.Point) {
	p.active = true
	p.stamp(pt)
	p.last = pt
}

// Move stamps at pt while a stroke is active.
func (p *Painter) Move(pt geometry.Point) {
	if !p.active {
		return
	}
	if p.config.Interpolate {
		p.stampSegment(p.last, pt)
	} else {
		p.stamp(pt)
	}
	p.last = pt
}

// Up ends the stroke.
func (p *Painter) Up() {
	p.active = false
}

// Leave ends the stroke when the pointer exits the canvas, exactly like Up.
func (p *Painter) Leave() {
	p.Up()
}

// Clear wipes the overlay feedback and resets the mask to all Keep.
func (p *Painter) Clear() {
	p.layer.Clear()
	p.raster.Reset()
}

func (p *Painter) stamp(pt geometry.Point) {
	r := float64(p.config.Size) / 2
	p.layer.FillCircle(pt, r, p.config.Color)
	rx, ry := p.tf.RadiusToImage(r)
	p.raster.Stamp(p.tf.ToImage(pt), rx, ry)
}

// stampSegment stamps from a (exclusive) to b (inclusive) at half-radius spacing.
func (p *Painter) stampSegment(a, b geometry.Point) {
	spacing := math.Max(float64(p.config.Size)/4, 1)
	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	steps := int(math.Ceil(dist / spacing))
	if steps < 1 {
		p.stamp(b)
		return
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p.stamp(geometry.Pt(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t))
	}
}
