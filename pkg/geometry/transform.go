// Package geometry maps points between display space (the rendered image box on
// screen) and image space (the native pixels of the source image).
package geometry

import (
	"errors"
	"fmt"

	"github.com/menta2k/image-eraser/pkg/types"
)

// ErrNotReady is returned when natural or display dimensions are not known yet,
// typically because the image has not finished decoding or laying out.
var ErrNotReady = errors.New("geometry: image not loaded or not laid out")

// Point is a 2D point with floating-point coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Transform is an axis-aligned scale between image space and display space.
// It is a value: build a new one whenever either size changes.
type Transform struct {
	natural Size
	display Size
	scaleX  float64
	scaleY  float64
}

// New builds the transform for the given natural and display sizes.
func New(natural, display Size) (Transform, error) {
	if !natural.Valid() || !display.Valid() {
		return Transform{}, fmt.Errorf("natural %s display %s: %w", natural, display, ErrNotReady)
	}
	return Transform{
		natural: natural,
		display: display,
		scaleX:  float64(display.Width) / float64(natural.Width),
		scaleY:  float64(display.Height) / float64(natural.Height),
	}, nil
}

// Natural returns the image-space size.
func (t Transform) Natural() Size { return t.natural }

// Display returns the display-space size.
func (t Transform) Display() Size { return t.display }

// ScaleX is display width / natural width.
func (t Transform) ScaleX() float64 { return t.scaleX }

// ScaleY is display height / natural height.
func (t Transform) ScaleY() float64 { return t.scaleY }

// ToDisplay maps an image-space point into display space.
func (t Transform) ToDisplay(p Point) Point {
	return Point{X: p.X * t.scaleX, Y: p.Y * t.scaleY}
}

// ToImage maps a display-space point into image space.
func (t Transform) ToImage(p Point) Point {
	return Point{X: p.X / t.scaleX, Y: p.Y / t.scaleY}
}

// RectToDisplay maps an image-space box into display space.
func (t Transform) RectToDisplay(r types.Rect) types.Rect {
	return types.Rect{
		X1: r.X1 * t.scaleX,
		Y1: r.Y1 * t.scaleY,
		X2: r.X2 * t.scaleX,
		Y2: r.Y2 * t.scaleY,
	}
}

// RadiusToImage converts a display-space radius into per-axis image-space radii,
// so a brush keeps the same visual width at any zoom level.
func (t Transform) RadiusToImage(r float64) (rx, ry float64) {
	return r / t.scaleX, r / t.scaleY
}

// Contains reports whether p lies inside r, inclusive on all four edges.
func Contains(r types.Rect, p Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}
