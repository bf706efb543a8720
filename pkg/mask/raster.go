// Package mask holds the native-resolution erase mask.
//
// A Raster is always sized to the source image's natural dimensions, never the
// display size, so it can be handed to an inpainting backend pixel-exact no
// matter how the image was shown while the user painted it.
package mask

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/types"
)

// Pixel values. Keep is the background ("not erased"), Erase marks painted pixels.
const (
	Keep  uint8 = 0
	Erase uint8 = 255
)

// Format is a lossless encoding for a serialized mask.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat maps a user-supplied name to a Format. Empty means PNG.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported mask format: %s (use png or webp)", name)
	}
}

// Raster is a monochrome bitmap of Keep/Erase values.
type Raster struct {
	img *image.Gray
}

// New allocates a raster of the given natural size filled with Keep.
func New(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask size %dx%d", width, height)
	}
	// image.NewGray zero-fills, which is Keep.
	return &Raster{img: image.NewGray(image.Rect(0, 0, width, height))}, nil
}

// FromRect builds a raster with every pixel inside rect set to Erase.
// It converts a box selection into the same mask shape a painted selection has.
func FromRect(width, height int, rect types.Rect) (*Raster, error) {
	r, err := New(width, height)
	if err != nil {
		return nil, err
	}
	r.FillRect(rect)
	return r, nil
}

// FromImage thresholds any image into a raster: non-black pixels become Erase.
func FromImage(src image.Image) (*Raster, error) {
	b := src.Bounds()
	r, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y != 0 {
				r.img.Pix[y*r.img.Stride+x] = Erase
			}
		}
	}
	return r, nil
}

// Decode reads an encoded mask (png or webp) back into a raster.
func Decode(data []byte) (*Raster, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			return FromImage(wimg)
		}
		return nil, fmt.Errorf("failed to decode mask: %w", err)
	}
	return FromImage(img)
}

// Size returns the raster dimensions.
func (r *Raster) Size() geometry.Size {
	b := r.img.Bounds()
	return geometry.Size{Width: b.Dx(), Height: b.Dy()}
}

// Image exposes the underlying bitmap. Callers must not modify it.
func (r *Raster) Image() *image.Gray {
	return r.img
}

// Reset fills the whole raster with Keep.
func (r *Raster) Reset() {
	clear(r.img.Pix)
}

// Stamp fills an ellipse centred on c with radii rx, ry (image-space pixels).
// A pixel is covered when its centre lies inside the ellipse. Values are set,
// not accumulated, so repeating a stamp changes nothing.
func (r *Raster) Stamp(c geometry.Point, rx, ry float64) {
	if rx <= 0 || ry <= 0 {
		return
	}
	w, h := r.img.Rect.Dx(), r.img.Rect.Dy()
	x0 := clampInt(int(math.Floor(c.X-rx)), 0, w)
	x1 := clampInt(int(math.Ceil(c.X+rx)), 0, w)
	y0 := clampInt(int(math.Floor(c.Y-ry)), 0, h)
	y1 := clampInt(int(math.Ceil(c.Y+ry)), 0, h)

	for y := y0; y < y1; y++ {
		dy := (float64(y) + 0.5 - c.Y) / ry
		row := y * r.img.Stride
		for x := x0; x < x1; x++ {
			dx := (float64(x) + 0.5 - c.X) / rx
			if dx*dx+dy*dy <= 1 {
				r.img.Pix[row+x] = Erase
			}
		}
	}
}

// FillRect sets every pixel whose centre lies inside rect to Erase.
func (r *Raster) FillRect(rect types.Rect) {
	w, h := r.img.Rect.Dx(), r.img.Rect.Dy()
	x0 := clampInt(int(math.Ceil(rect.X1-0.5)), 0, w)
	x1 := clampInt(int(math.Floor(rect.X2-0.5))+1, 0, w)
	y0 := clampInt(int(math.Ceil(rect.Y1-0.5)), 0, h)
	y1 := clampInt(int(math.Floor(rect.Y2-0.5))+1, 0, h)
	for y := y0; y < y1; y++ {
		row := y * r.img.Stride
		for x := x0; x < x1; x++ {
			r.img.Pix[row+x] = Erase
		}
	}
}

// At reports whether the pixel at (x, y) is marked Erase.
func (r *Raster) At(x, y int) bool {
	if !image.Pt(x, y).In(r.img.Rect) {
		return false
	}
	return r.img.Pix[y*r.img.Stride+x] == Erase
}

// EraseCount returns the number of Erase pixels.
func (r *Raster) EraseCount() int {
	n := 0
	for _, v := range r.img.Pix {
		if v != Keep {
			n++
		}
	}
	return n
}

// IsEmpty reports whether nothing has been painted.
func (r *Raster) IsEmpty() bool {
	for _, v := range r.img.Pix {
		if v != Keep {
			return false
		}
	}
	return true
}

// Bounds returns the smallest rectangle covering every Erase pixel,
// or an empty rectangle when the raster is empty.
func (r *Raster) Bounds() image.Rectangle {
	w, h := r.img.Rect.Dx(), r.img.Rect.Dy()
	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		row := r.img.Pix[y*r.img.Stride : y*r.img.Stride+w]
		for x, v := range row {
			if v == Keep {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Equal reports whether two rasters have identical size and pixels.
func (r *Raster) Equal(other *Raster) bool {
	if other == nil || r.img.Rect != other.img.Rect {
		return false
	}
	return bytes.Equal(r.img.Pix, other.img.Pix)
}

// Clone returns an independent copy.
func (r *Raster) Clone() *Raster {
	img := image.NewGray(r.img.Rect)
	copy(img.Pix, r.img.Pix)
	return &Raster{img: img}
}

// Encode writes the raster in a lossless format.
func (r *Raster) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatPNG, "":
		return imaging.Encode(w, r.img, imaging.PNG)
	case FormatWebP:
		return webp.Encode(w, imaging.Clone(r.img), &webp.Options{Lossless: true})
	default:
		return fmt.Errorf("unsupported mask format: %s", format)
	}
}

// Selection encodes the raster into a RasterSelection.
func (r *Raster) Selection(format Format) (types.RasterSelection, error) {
	if format == "" {
		format = FormatPNG
	}
	var buf bytes.Buffer
	if err := r.Encode(&buf, format); err != nil {
		return types.RasterSelection{}, fmt.Errorf("failed to encode mask: %w", err)
	}
	size := r.Size()
	return types.RasterSelection{
		Data:   buf.Bytes(),
		Format: string(format),
		Width:  size.Width,
		Height: size.Height,
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
