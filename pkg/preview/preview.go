// Package preview renders thumbnails of the region a selection covers.
package preview

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/types"
)

// Previewer crops the selected region with some context and fits it into a
// thumbnail.
type Previewer struct {
	config Config
}

// Config holds configuration for previews
type Config struct {
	Width  int
	Height int
	// PaddingRatio grows the region by this fraction of its size on each side
	PaddingRatio float64
	// AspectRatio, when non-zero, widens the padded region to this W/H ratio
	AspectRatio    AspectRatio
	AllowUpscaling bool
}

// AspectRatio represents common aspect ratios
type AspectRatio struct {
	Width  int
	Height int
	Name   string
}

// Ratio returns W/H, or 0 for the zero value
func (a AspectRatio) Ratio() float64 {
	if a.Width <= 0 || a.Height <= 0 {
		return 0
	}
	return float64(a.Width) / float64(a.Height)
}

// Common aspect ratios
var (
	Free       = AspectRatio{0, 0, "free"}
	Square     = AspectRatio{1, 1, "square"}
	Landscape  = AspectRatio{4, 3, "landscape"}
	Widescreen = AspectRatio{16, 9, "widescreen"}
)

// New creates a previewer producing 256x256 thumbnails with 10% padding
func New() *Previewer {
	return &Previewer{
		config: Config{
			Width:        256,
			Height:       256,
			PaddingRatio: 0.1,
			AspectRatio:  Free,
		},
	}
}

// NewWithConfig creates a previewer with custom configuration
func NewWithConfig(config Config) *Previewer {
	return &Previewer{config: config}
}

// Result contains a rendered preview
type Result struct {
	Image image.Image
	// Region is the crop taken from the source, in source pixels
	Region image.Rectangle
}

// Box previews a box selection
func (p *Previewer) Box(img image.Image, sel types.BoxSelection) (Result, error) {
	r := sel.Rect()
	rect := image.Rect(
		int(math.Floor(r.X1)), int(math.Floor(r.Y1)),
		int(math.Ceil(r.X2)), int(math.Ceil(r.Y2)),
	)
	return p.Region(img, rect)
}

// Mask previews the erased area of a mask
func (p *Previewer) Mask(img image.Image, m *mask.Raster) (Result, error) {
	if m.Size().Width != img.Bounds().Dx() || m.Size().Height != img.Bounds().Dy() {
		return Result{}, fmt.Errorf("mask size %s does not match image size %v", m.Size(), img.Bounds().Size())
	}
	b := m.Bounds()
	if b.Empty() {
		return Result{}, fmt.Errorf("mask is empty")
	}
	return p.Region(img, b)
}

// Region crops rect (source pixel space, relative to img's origin) with
// padding and fits it into the thumbnail size
func (p *Previewer) Region(img image.Image, rect image.Rectangle) (Result, error) {
	bounds := img.Bounds()
	full := image.Rect(0, 0, bounds.Dx(), bounds.Dy())

	region := p.expand(rect, full)
	if region.Empty() {
		return Result{}, fmt.Errorf("region %v is outside the image", rect)
	}

	cropped := imaging.Crop(img, region.Add(bounds.Min))

	var thumb image.Image = cropped
	switch {
	case p.config.Width <= 0 || p.config.Height <= 0:
	case p.config.AllowUpscaling:
		thumb = fitUp(cropped, p.config.Width, p.config.Height)
	default:
		thumb = imaging.Fit(cropped, p.config.Width, p.config.Height, imaging.Lanczos)
	}

	return Result{Image: thumb, Region: region}, nil
}

// expand pads rect, widens it to the configured aspect and clips to full
func (p *Previewer) expand(rect, full image.Rectangle) image.Rectangle {
	rect = rect.Canon()
	padX := int(math.Round(float64(rect.Dx()) * p.config.PaddingRatio))
	padY := int(math.Round(float64(rect.Dy()) * p.config.PaddingRatio))
	rect = image.Rect(rect.Min.X-padX, rect.Min.Y-padY, rect.Max.X+padX, rect.Max.Y+padY)

	if ratio := p.config.AspectRatio.Ratio(); ratio > 0 && rect.Dy() > 0 {
		cur := float64(rect.Dx()) / float64(rect.Dy())
		if cur < ratio {
			grow := int(math.Round(float64(rect.Dy())*ratio)) - rect.Dx()
			rect.Min.X -= grow / 2
			rect.Max.X += grow - grow/2
		} else if cur > ratio {
			grow := int(math.Round(float64(rect.Dx())/ratio)) - rect.Dy()
			rect.Min.Y -= grow / 2
			rect.Max.Y += grow - grow/2
		}
		rect = shiftInside(rect, full)
	}
	return rect.Intersect(full)
}

// shiftInside moves rect so it overlaps full as much as possible without resizing
func shiftInside(rect, full image.Rectangle) image.Rectangle {
	if rect.Min.X < full.Min.X {
		rect = rect.Add(image.Pt(full.Min.X-rect.Min.X, 0))
	} else if rect.Max.X > full.Max.X {
		rect = rect.Sub(image.Pt(rect.Max.X-full.Max.X, 0))
	}
	if rect.Min.Y < full.Min.Y {
		rect = rect.Add(image.Pt(0, full.Min.Y-rect.Min.Y))
	} else if rect.Max.Y > full.Max.Y {
		rect = rect.Sub(image.Pt(0, rect.Max.Y-full.Max.Y))
	}
	return rect
}

func fitUp(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	scale := math.Min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
