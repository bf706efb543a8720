// Package photo inspects source images: decoded format, natural dimensions
// and the minimum/maximum size checks applied before a session starts.
package photo

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-eraser/pkg/geometry"
)

// Inspector reads and validates source images
type Inspector struct {
	config Config
}

// Config holds configuration for the inspector
type Config struct {
	SupportedFormats []string
	MinImageSize     int
	// MaxPixels caps width*height; 0 disables the check.
	MaxPixels int
}

// New creates a new Inspector with default configuration
func New() *Inspector {
	return &Inspector{
		config: Config{
			SupportedFormats: []string{"jpg", "jpeg", "png", "webp"},
			MinImageSize:     16,
			MaxPixels:        64 << 20,
		},
	}
}

// NewWithConfig creates a new Inspector with custom configuration
func NewWithConfig(config Config) *Inspector {
	return &Inspector{config: config}
}

// Info contains basic image metadata
type Info struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
	Format      string  `json:"format,omitempty"`
}

// Size returns the natural size
func (i Info) Size() geometry.Size {
	return geometry.Size{Width: i.Width, Height: i.Height}
}

// InspectFile reads only the image header and returns its metadata
func (p *Inspector) InspectFile(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()
	return p.Inspect(file)
}

// Inspect reads only the image header from r
func (p *Inspector) Inspect(r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if !p.isFormatSupported(format) {
		return Info{}, fmt.Errorf("unsupported image format: %s", format)
	}
	info := newInfo(cfg.Width, cfg.Height)
	info.Format = format
	return info, p.Validate(info)
}

// Load decodes an image file
func (p *Inspector) Load(path string) (image.Image, Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()
	return p.LoadFromReader(file)
}

// LoadFromReader decodes an image from an io.Reader
func (p *Inspector) LoadFromReader(reader io.Reader) (image.Image, Info, error) {
	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if !p.isFormatSupported(format) {
		return nil, Info{}, fmt.Errorf("unsupported image format: %s", format)
	}
	info := p.GetImageInfo(img)
	info.Format = format
	if err := p.Validate(info); err != nil {
		return nil, Info{}, err
	}
	return img, info, nil
}

// GetImageInfo returns basic information about a decoded image
func (p *Inspector) GetImageInfo(img image.Image) Info {
	bounds := img.Bounds()
	return newInfo(bounds.Dx(), bounds.Dy())
}

// Validate checks if an image meets size requirements
func (p *Inspector) Validate(info Info) error {
	if info.Width < p.config.MinImageSize || info.Height < p.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			info.Width, info.Height, p.config.MinImageSize)
	}
	if p.config.MaxPixels > 0 && info.Area > p.config.MaxPixels {
		return fmt.Errorf("image too large: %dx%d (maximum: %d pixels)",
			info.Width, info.Height, p.config.MaxPixels)
	}
	return nil
}

func (p *Inspector) isFormatSupported(format string) bool {
	for _, supported := range p.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

func newInfo(width, height int) Info {
	info := Info{Width: width, Height: height, Area: width * height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}
