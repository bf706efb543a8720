package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-eraser/pkg/types"
)

// createTestImage creates a solid grey test image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 200
		img.Pix[i+1] = 200
		img.Pix[i+2] = 200
		img.Pix[i+3] = 255
	}
	return img
}

func TestDecodeBytes(t *testing.T) {
	p := NewProcessor()
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(30, 20)); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}

	img, err := p.DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}

	if _, err := p.DecodeBytes([]byte("nope")); err == nil {
		t.Error("Garbage should not decode")
	}
}

func TestLoadImageFromURL(t *testing.T) {
	var pngData bytes.Buffer
	if err := png.Encode(&pngData, createTestImage(24, 12)); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData.Bytes())
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := &Processor{Client: srv.Client()}
	img, err := p.LoadImageFromURL(srv.URL + "/photo.png")
	if err != nil {
		t.Fatalf("LoadImageFromURL failed: %v", err)
	}
	if img.Bounds().Dx() != 24 || img.Bounds().Dy() != 12 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}

	for _, u := range []string{srv.URL + "/page", srv.URL + "/missing", "ftp://example.com/a.png"} {
		if _, err := p.LoadImageFromURL(u); err == nil {
			t.Errorf("Expected %s to fail", u)
		}
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(40, 30)

	for _, format := range []string{"png", "jpg", "webp"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "out."+format)
			if err := p.SaveImage(img, path, format, 90, true); err != nil {
				t.Fatalf("SaveImage failed: %v", err)
			}
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("Output missing: %v", err)
			}
			loaded, err := p.LoadImage(path)
			if err != nil {
				t.Fatalf("LoadImage failed: %v", err)
			}
			if loaded.Bounds().Dx() != 40 || loaded.Bounds().Dy() != 30 {
				t.Errorf("Unexpected bounds %v", loaded.Bounds())
			}
		})
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	encoded, err := p.PrepareImageForModel(createTestImage(400, 200), "png", 100, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Output should be base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output should be PNG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50 after downscale, got %v", img.Bounds())
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	dets := []types.Detection{
		{Box: types.Rect{X1: 10, Y1: 10, X2: 50, Y2: 50}, Label: "cup"},
		{Box: types.Rect{X1: 60, Y1: 10, X2: 90, Y2: 50}, Label: "plate"},
	}
	out := p.CreateDebugOverlay(createTestImage(100, 100), dets, 1)

	if got := color.NRGBAModel.Convert(out.At(10, 30)).(color.NRGBA); got != (color.NRGBA{99, 102, 241, 255}) {
		t.Errorf("Unselected box should use base colour, got %v", got)
	}
	if got := color.NRGBAModel.Convert(out.At(60, 30)).(color.NRGBA); got != (color.NRGBA{236, 72, 153, 255}) {
		t.Errorf("Selected box should use accent colour, got %v", got)
	}
}

func TestComposeOverlay(t *testing.T) {
	p := NewProcessor()
	layer := image.NewNRGBA(image.Rect(0, 0, 50, 25))
	layer.SetNRGBA(5, 5, color.NRGBA{255, 0, 0, 255})

	out := p.ComposeOverlay(createTestImage(200, 100), layer)
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 25 {
		t.Fatalf("Composite should have display size, got %v", out.Bounds())
	}
	r, g, _, _ := out.At(5, 5).RGBA()
	if r>>8 != 255 || g>>8 != 0 {
		t.Errorf("Opaque overlay pixel should win, got r=%d g=%d", r>>8, g>>8)
	}
}

func TestMaskPreview(t *testing.T) {
	p := NewProcessor()
	mask := image.NewGray(image.Rect(0, 0, 20, 20))
	mask.SetGray(3, 3, color.Gray{Y: 255})
	tint := color.NRGBA{236, 72, 153, 255}

	out, err := p.MaskPreview(createTestImage(20, 20), mask, tint)
	if err != nil {
		t.Fatalf("MaskPreview failed: %v", err)
	}
	if got := color.NRGBAModel.Convert(out.At(3, 3)).(color.NRGBA); got != tint {
		t.Errorf("Erase pixel should be tinted, got %v", got)
	}
	if got := color.NRGBAModel.Convert(out.At(10, 10)).(color.NRGBA); got.R != 100 {
		t.Errorf("Kept pixel should be dimmed, got %v", got)
	}

	if _, err := p.MaskPreview(createTestImage(10, 10), mask, tint); err == nil {
		t.Error("Mismatched sizes should fail")
	}
}
