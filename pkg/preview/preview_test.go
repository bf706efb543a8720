package preview

import (
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
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

func TestNew(t *testing.T) {
	p := New()
	if p.config.Width != 256 || p.config.PaddingRatio != 0.1 {
		t.Errorf("Unexpected defaults %+v", p.config)
	}
}

func TestBoxPreview(t *testing.T) {
	p := NewWithConfig(Config{Width: 50, Height: 50, PaddingRatio: 0.1})
	res, err := p.Box(createTestImage(400, 300), types.BoxSelection{X1: 100, Y1: 100, X2: 200, Y2: 150})
	if err != nil {
		t.Fatalf("Box failed: %v", err)
	}

	want := image.Rect(90, 95, 210, 155)
	if res.Region != want {
		t.Errorf("Expected region %v, got %v", want, res.Region)
	}
	b := res.Image.Bounds()
	if b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("Expected 50x25 thumbnail, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRegionClipsToImage(t *testing.T) {
	p := NewWithConfig(Config{PaddingRatio: 0.5})
	res, err := p.Region(createTestImage(100, 100), image.Rect(80, 80, 100, 100))
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	if res.Region != image.Rect(70, 70, 100, 100) {
		t.Errorf("Expected clipped region, got %v", res.Region)
	}
}

func TestRegionOutside(t *testing.T) {
	if _, err := New().Region(createTestImage(100, 100), image.Rect(200, 200, 300, 300)); err == nil {
		t.Error("Region outside the image should fail")
	}
}

func TestAspectRatio(t *testing.T) {
	p := NewWithConfig(Config{AspectRatio: Square})
	res, err := p.Region(createTestImage(400, 300), image.Rect(100, 100, 200, 150))
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	if res.Region.Dx() != res.Region.Dy() {
		t.Errorf("Expected a square region, got %v", res.Region)
	}

	// near the edge the region slides back inside instead of shrinking
	res, err = p.Region(createTestImage(400, 300), image.Rect(0, 0, 10, 100))
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	if res.Region != image.Rect(0, 0, 100, 100) {
		t.Errorf("Expected region shifted inside, got %v", res.Region)
	}
}

func TestMaskPreview(t *testing.T) {
	img := createTestImage(120, 80)
	m, _ := mask.FromRect(120, 80, types.Rect{X1: 10, Y1: 20, X2: 30, Y2: 40})

	res, err := NewWithConfig(Config{}).Mask(img, m)
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if res.Region != image.Rect(10, 20, 30, 40) {
		t.Errorf("Expected mask bounds, got %v", res.Region)
	}

	empty, _ := mask.New(120, 80)
	if _, err := New().Mask(img, empty); err == nil {
		t.Error("Empty mask should fail")
	}
	other, _ := mask.New(10, 10)
	if _, err := New().Mask(img, other); err == nil {
		t.Error("Mismatched mask should fail")
	}
}

func TestUpscaling(t *testing.T) {
	p := NewWithConfig(Config{Width: 100, Height: 100, AllowUpscaling: true})
	res, err := p.Region(createTestImage(100, 100), image.Rect(0, 0, 20, 10))
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("Expected upscaled 100x50, got %v", b)
	}
}
