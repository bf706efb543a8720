// Package overlay owns the display-sized feedback buffer drawn over the photo:
// detection boxes with label chips in Auto mode and brush feedback in Manual mode.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/types"
)

// Style controls how detections are drawn.
type Style struct {
	Base        color.NRGBA
	Accent      color.NRGBA
	Text        color.NRGBA
	StrokeWidth int
	ChipHeight  int
	ChipPadding int
}

// DefaultStyle returns indigo boxes with a pink accent for the selected one.
func DefaultStyle() Style {
	return Style{
		Base:        color.NRGBA{0x63, 0x66, 0xf1, 0xff},
		Accent:      color.NRGBA{0xec, 0x48, 0x99, 0xff},
		Text:        color.NRGBA{0xff, 0xff, 0xff, 0xff},
		StrokeWidth: 3,
		ChipHeight:  25,
		ChipPadding: 5,
	}
}

// Layer is a transparent NRGBA buffer the size of the displayed image.
type Layer struct {
	img   *image.NRGBA
	style Style
}

// New allocates a cleared layer of the given display size.
func New(size geometry.Size) (*Layer, error) {
	return NewWithStyle(size, DefaultStyle())
}

// NewWithStyle allocates a cleared layer with a custom detection style.
func NewWithStyle(size geometry.Size, style Style) (*Layer, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("overlay size %s: %w", size, geometry.ErrNotReady)
	}
	return &Layer{
		img:   image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height)),
		style: style,
	}, nil
}

// Image exposes the buffer for compositing or encoding.
func (l *Layer) Image() *image.NRGBA {
	return l.img
}

// Size returns the display size the layer was allocated for.
func (l *Layer) Size() geometry.Size {
	return geometry.Size{Width: l.img.Rect.Dx(), Height: l.img.Rect.Dy()}
}

// Clear erases everything drawn on the layer.
func (l *Layer) Clear() {
	clear(l.img.Pix)
}

// Label formats the chip text for a detection, e.g. "person 87%".
func Label(d types.Detection) string {
	return fmt.Sprintf("%s %d%%", d.Label, int(math.Round(d.Confidence*100)))
}

// DrawDetections clears the layer and draws every detection box in display
// space. The detection at index selected uses the accent colour; pass -1 for none.
func (l *Layer) DrawDetections(dets []types.Detection, tf geometry.Transform, selected int) {
	l.Clear()
	for i, d := range dets {
		col := l.style.Base
		if i == selected {
			col = l.style.Accent
		}
		r := tf.RectToDisplay(d.Box)
		l.strokeRect(r, col)
		l.drawChip(r, Label(d), col)
	}
}

// strokeRect draws a rectangle outline centred on the box edges.
func (l *Layer) strokeRect(r types.Rect, col color.NRGBA) {
	x0, y0 := int(math.Round(r.X1)), int(math.Round(r.Y1))
	x1, y1 := int(math.Round(r.X2)), int(math.Round(r.Y2))
	half := l.style.StrokeWidth / 2
	for s := -half; s < l.style.StrokeWidth-half; s++ {
		l.hLine(y0+s, x0-half, x1+half+1, col)
		l.hLine(y1+s, x0-half, x1+half+1, col)
		l.vLine(x0+s, y0-half, y1+half+1, col)
		l.vLine(x1+s, y0-half, y1+half+1, col)
	}
}

// drawChip draws an opaque label chip sitting on top of the box's top-left corner.
func (l *Layer) drawChip(r types.Rect, text string, col color.NRGBA) {
	d := &font.Drawer{Dst: l.img, Src: image.NewUniform(l.style.Text), Face: basicfont.Face7x13}
	textW := d.MeasureString(text).Ceil()

	x0 := int(math.Round(r.X1))
	y1 := int(math.Round(r.Y1))
	chip := image.Rect(x0, y1-l.style.ChipHeight, x0+textW+2*l.style.ChipPadding, y1)
	l.fillRect(chip, col)

	d.Dot = fixed.P(x0+l.style.ChipPadding, y1-7)
	d.DrawString(text)
}

// FillCircle paints a filled circle of radius r (display pixels) centred on c.
func (l *Layer) FillCircle(c geometry.Point, r float64, col color.NRGBA) {
	if r <= 0 {
		return
	}
	b := l.img.Rect
	x0 := max(int(math.Floor(c.X-r)), b.Min.X)
	x1 := min(int(math.Ceil(c.X+r)), b.Max.X)
	y0 := max(int(math.Floor(c.Y-r)), b.Min.Y)
	y1 := min(int(math.Ceil(c.Y+r)), b.Max.Y)
	r2 := r * r
	for y := y0; y < y1; y++ {
		dy := float64(y) + 0.5 - c.Y
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - c.X
			if dx*dx+dy*dy <= r2 {
				l.img.SetNRGBA(x, y, col)
			}
		}
	}
}

// ProjectMask redraws the layer from a native-resolution mask: the mask is
// scaled down to the display size and every non-zero pixel is tinted with col.
func (l *Layer) ProjectMask(m *image.Gray, col color.NRGBA) {
	l.Clear()
	scaled := image.NewGray(l.img.Rect)
	xdraw.NearestNeighbor.Scale(scaled, scaled.Rect, m, m.Bounds(), xdraw.Src, nil)
	for y := 0; y < scaled.Rect.Dy(); y++ {
		row := scaled.Pix[y*scaled.Stride : y*scaled.Stride+scaled.Rect.Dx()]
		for x, v := range row {
			if v != 0 {
				l.img.SetNRGBA(x, y, col)
			}
		}
	}
}

func (l *Layer) fillRect(r image.Rectangle, col color.NRGBA) {
	r = r.Intersect(l.img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		l.hLine(y, r.Min.X, r.Max.X, col)
	}
}

func (l *Layer) hLine(y, x0, x1 int, c color.NRGBA) {
	b := l.img.Rect
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	x0, x1 = max(x0, b.Min.X), min(x1, b.Max.X)
	i := l.img.PixOffset(x0, y)
	for x := x0; x < x1; x++ {
		l.img.Pix[i+0] = c.R
		l.img.Pix[i+1] = c.G
		l.img.Pix[i+2] = c.B
		l.img.Pix[i+3] = c.A
		i += 4
	}
}

func (l *Layer) vLine(x, y0, y1 int, c color.NRGBA) {
	b := l.img.Rect
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	y0, y1 = max(y0, b.Min.Y), min(y1, b.Max.Y)
	for y := y0; y < y1; y++ {
		i := l.img.PixOffset(x, y)
		l.img.Pix[i+0] = c.R
		l.img.Pix[i+1] = c.G
		l.img.Pix[i+2] = c.B
		l.img.Pix[i+3] = c.A
	}
}
