package imageeraser

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-eraser/internal/config"
	"github.com/menta2k/image-eraser/pkg/detection"
	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/selector"
	"github.com/menta2k/image-eraser/pkg/types"
	"github.com/menta2k/image-eraser/pkg/vision"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Create a pattern with a bright subject in the center
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}

	return img
}

type stubDetector struct {
	dets []types.Detection
	err  error
}

func (s stubDetector) Detect(ctx context.Context, img image.Image) ([]types.Detection, error) {
	return s.dets, s.err
}

func TestNew(t *testing.T) {
	eraser, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if eraser.inspector == nil || eraser.processor == nil || eraser.previewer == nil {
		t.Error("components should be initialized")
	}
	if eraser.detector != nil {
		t.Error("detector should be built lazily")
	}
}

func TestNewWithInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Brush.Size = 500
	if _, err := NewWithConfig(cfg); err == nil {
		t.Error("Expected invalid config to be rejected")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, createTestImage(120, 80)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	eraser, _ := New()
	img, info, err := eraser.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 120 || info.Size() != (geometry.Size{Width: 120, Height: 80}) {
		t.Errorf("Unexpected size %v / %+v", img.Bounds(), info)
	}
	if info.Format != "png" {
		t.Errorf("Expected png format, got %q", info.Format)
	}

	if _, _, err := eraser.Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected missing file to fail")
	}
}

func TestLoadFromReaderTooSmall(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(8, 8)); err != nil {
		t.Fatal(err)
	}
	eraser, _ := New()
	if _, _, err := eraser.LoadFromReader(&buf); err == nil {
		t.Error("Expected image below minimum size to fail")
	}
}

func TestDetectLocalBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.Backend = config.BackendLocal
	eraser, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	dets, err := eraser.Detect(context.Background(), createTestImage(300, 300))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) == 0 {
		t.Error("Expected local backend to find the bright subject")
	}
	if _, ok := eraser.detector.(*vision.Detector); !ok {
		t.Errorf("Expected vision detector, got %T", eraser.detector)
	}
}

func TestNewDetectorBackends(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		backend string
		wantErr bool
	}{
		{config.BackendOllama, false},
		{config.BackendLlamaCpp, false},
		{config.BackendGemini, true},
		{"yolo", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			eraser, _ := New()
			eraser.config.Detection.Backend = tt.backend
			d, err := eraser.newDetector()
			if (err != nil) != tt.wantErr {
				t.Fatalf("newDetector() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if _, ok := d.(*detection.ModelDetector); !ok {
					t.Errorf("Expected model detector, got %T", d)
				}
			}
		})
	}
}

func TestDetectError(t *testing.T) {
	eraser, _ := New()
	eraser.SetDetector(stubDetector{err: errors.New("boom")})
	if _, err := eraser.Detect(context.Background(), createTestImage(50, 50)); err == nil {
		t.Error("Expected detector error to propagate")
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Brush.Size = 30
	cfg.Brush.Interpolate = true
	cfg.Selection.MaskFormat = "webp"
	cfg.Selection.AllowEmptySubmit = true
	eraser, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	opts := eraser.SessionOptions()
	if opts.BrushSize != 30 || !opts.Interpolate || !opts.AllowEmptySubmit {
		t.Errorf("Options not taken from config: %+v", opts)
	}
	if opts.MaskFormat != mask.FormatWebP {
		t.Errorf("Expected webp mask format, got %q", opts.MaskFormat)
	}
}

func TestSessionEndToEnd(t *testing.T) {
	eraser, _ := New()
	eraser.SetDetector(stubDetector{dets: []types.Detection{
		{Box: types.Rect{X1: 100, Y1: 100, X2: 300, Y2: 300}, Label: "cat", Confidence: 0.9},
	}})
	img := createTestImage(800, 600)

	var got []types.Selection
	session := eraser.NewSession(func(sel types.Selection) { got = append(got, sel) })
	if err := session.Load(selector.Source{Path: "mem", Size: geometry.Size{Width: 800, Height: 600}}); err != nil {
		t.Fatal(err)
	}
	if err := session.Resize(geometry.Size{Width: 400, Height: 300}); err != nil {
		t.Fatal(err)
	}
	dets, err := eraser.Detect(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.SetDetections(dets); err != nil {
		t.Fatal(err)
	}
	session.Click(geometry.Pt(75, 75))

	if len(got) != 1 {
		t.Fatalf("Expected one selection, got %d", len(got))
	}
	res, err := eraser.Preview(img, got[0])
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if res.Region.Min.X != 80 || res.Region.Max.X != 320 {
		t.Errorf("Expected padded region around the box, got %v", res.Region)
	}
}

func TestPreviewRaster(t *testing.T) {
	eraser, _ := New()
	img := createTestImage(120, 80)

	m, _ := mask.FromRect(120, 80, types.Rect{X1: 10, Y1: 10, X2: 30, Y2: 30})
	sel, err := m.Selection(mask.FormatPNG)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eraser.Preview(img, sel); err != nil {
		t.Errorf("Preview of raster selection failed: %v", err)
	}
}

func TestSaveImage(t *testing.T) {
	eraser, _ := New()
	dir := t.TempDir()
	for _, name := range []string{"out.png", "out.jpg", "out.webp"} {
		path := filepath.Join(dir, name)
		if err := eraser.SaveImage(createTestImage(40, 40), path); err != nil {
			t.Errorf("SaveImage(%s) failed: %v", name, err)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("GetVersion() = %q, want %q", GetVersion(), Version)
	}
}

func BenchmarkSessionClick(b *testing.B) {
	eraser, _ := New()
	session := eraser.NewSession(nil)
	session.Load(selector.Source{Size: geometry.Size{Width: 1920, Height: 1080}})
	session.Resize(geometry.Size{Width: 960, Height: 540})
	session.SetDetections([]types.Detection{{Box: types.Rect{X1: 100, Y1: 100, X2: 900, Y2: 700}, Label: "car", Confidence: 0.8}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		session.Click(geometry.Pt(200, 200))
	}
}
