package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-eraser/pkg/types"
)

const userAgentVersion = "0.1"

// Processor handles image processing operations
type Processor struct {
	// Client is used for URL downloads. Nil means a client with a 30s timeout.
	Client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

func (p *Processor) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// LoadImageFromURL downloads an http(s) image and decodes it. The response
// must carry an image/* content type.
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "image-eraser/"+userAgentVersion)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%s is not an image (Content-Type %q)", u.Redacted(), ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return p.DecodeBytes(data)
}

// LoadImage opens a file through imaging's registered decoders, then retries
// with the cgo WebP decoder for files x/image cannot read.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err == nil {
		return img, nil
	}
	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return nil, rerr
	}
	if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return img, nil
	}
	return nil, fmt.Errorf("failed to decode %s: %w", path, err)
}

// DecodeBytes decodes an image from byte data with WebP support
func (p *Processor) DecodeBytes(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	reader := bytes.NewReader(data)
	if img, _, err := image.Decode(reader); err == nil {
		return img, nil
	}

	// Try WebP decode
	reader = bytes.NewReader(data)
	if img, err := webp.Decode(reader); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// CreateDebugOverlay draws detection boxes on a copy of img at natural resolution
func (p *Processor) CreateDebugOverlay(img image.Image, dets []types.Detection, selected int) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	base := color.NRGBA{99, 102, 241, 255}  // #6366f1
	accent := color.NRGBA{236, 72, 153, 255} // #ec4899
	stroke := int(math.Max(2, 0.004*float64(min(w, h))))

	for i, d := range dets {
		c := base
		if i == selected {
			c = accent
		}
		drawBox(nrgba, d.Box, w, h, c, stroke)
	}
	return nrgba
}

// ComposeOverlay scales img to the overlay's size and draws the overlay on top,
// reproducing what a user sees on the display surface.
func (p *Processor) ComposeOverlay(img image.Image, layer *image.NRGBA) image.Image {
	size := layer.Bounds().Size()
	bg := imaging.Resize(img, size.X, size.Y, imaging.Lanczos)
	return imaging.Overlay(bg, layer, image.Pt(0, 0), 1.0)
}

// MaskPreview tints the erase region of a natural-size mask over img.
// Kept pixels are dimmed so the region stands out.
func (p *Processor) MaskPreview(img image.Image, mask *image.Gray, tint color.NRGBA) (image.Image, error) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	if b.Size() != mask.Bounds().Size() {
		return nil, fmt.Errorf("mask size %v does not match image size %v", mask.Bounds().Size(), b.Size())
	}
	a := float64(tint.A) / 255
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := y*nrgba.Stride + x*4
			if mask.Pix[y*mask.Stride+x] == 0 {
				nrgba.Pix[i+0] /= 2
				nrgba.Pix[i+1] /= 2
				nrgba.Pix[i+2] /= 2
				continue
			}
			nrgba.Pix[i+0] = blend(nrgba.Pix[i+0], tint.R, a)
			nrgba.Pix[i+1] = blend(nrgba.Pix[i+1], tint.G, a)
			nrgba.Pix[i+2] = blend(nrgba.Pix[i+2], tint.B, a)
		}
	}
	return nrgba, nil
}

// Helper functions
func blend(dst, src uint8, a float64) uint8 {
	return uint8(float64(dst)*(1-a) + float64(src)*a + 0.5)
}

func rectToPixels(r types.Rect, w, h int) (int, int, int, int) {
	x0 := int(clamp(r.X1, 0, float64(w)) + 0.5)
	y0 := int(clamp(r.Y1, 0, float64(h)) + 0.5)
	x1 := int(clamp(r.X2, 0, float64(w)) + 0.5)
	y1 := int(clamp(r.Y2, 0, float64(h)) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func drawBox(img *image.NRGBA, r types.Rect, w, h int, color color.NRGBA, stroke int) {
	x0, y0, x1, y1 := rectToPixels(r, w, h)
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, color)
		drawHLine(img, y1-1-s, x0, x1, color)
		drawVLine(img, x0+s, y0, y1, color)
		drawVLine(img, x1-1-s, y0, y1, color)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}