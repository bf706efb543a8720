package vision

import (
	"context"
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a simple test image with some patterns
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/4 && x < width/2 && y > height/4 && y < 3*height/4 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255}) // White square
			} else if x > 3*width/4 && y > height/4 && y < 3*height/4 {
				img.Set(x, y, color.RGBA{0, 0, 0, 255}) // Black square
			} else {
				// Background gradient
				r := uint8((x * 128) / width)
				g := uint8((y * 128) / height)
				img.Set(x, y, color.RGBA{r, g, 64, 255})
			}
		}
	}

	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}

	if detector.config.EdgeThreshold != 0.01 {
		t.Errorf("Expected edge threshold 0.01, got %f", detector.config.EdgeThreshold)
	}
}

func TestRegionGeometry(t *testing.T) {
	region := Region{X: 10, Y: 20, Width: 100, Height: 80}

	if x, y := region.Center(); x != 60 || y != 60 {
		t.Errorf("Expected center (60,60), got (%d,%d)", x, y)
	}
	if region.Area() != 8000 {
		t.Errorf("Expected area 8000, got %d", region.Area())
	}
}

func TestRegionIoU(t *testing.T) {
	a := Region{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		name string
		b    Region
		want float64
	}{
		{name: "identical", b: a, want: 1},
		{name: "disjoint", b: Region{X: 20, Y: 20, Width: 10, Height: 10}, want: 0},
		{name: "half overlap", b: Region{X: 5, Y: 0, Width: 10, Height: 10}, want: 50.0 / 150.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.IoU(tt.b); got != tt.want {
				t.Errorf("IoU = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	detector := New()
	img := createTestImage(400, 300)

	dets, err := detector.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) == 0 {
		t.Fatal("Expected at least one detection")
	}
	if len(dets) > detector.config.MaxRegions {
		t.Errorf("Expected at most %d detections, got %d", detector.config.MaxRegions, len(dets))
	}

	for i, d := range dets {
		if d.Box.Width() <= 0 || d.Box.Height() <= 0 {
			t.Errorf("Detection %d has invalid box %+v", i, d.Box)
		}
		if d.Box.X1 < 0 || d.Box.Y1 < 0 || d.Box.X2 > 400 || d.Box.Y2 > 300 {
			t.Errorf("Detection %d leaves the image: %+v", i, d.Box)
		}
		if d.Confidence <= 0 || d.Confidence > 1 {
			t.Errorf("Detection %d has confidence %f outside (0,1]", i, d.Confidence)
		}
		if d.Label == "" {
			t.Errorf("Detection %d has no label", i)
		}
	}
	if dets[0].Confidence != 1 {
		t.Errorf("Strongest detection should have confidence 1, got %f", dets[0].Confidence)
	}
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Detect(ctx, createTestImage(200, 200)); err == nil {
		t.Error("Expected cancelled context to stop detection")
	}
}

func TestSuppressOverlaps(t *testing.T) {
	detector := New()
	sorted := []Region{
		{X: 0, Y: 0, Width: 10, Height: 10, Score: 0.9},
		{X: 1, Y: 1, Width: 10, Height: 10, Score: 0.8},
		{X: 50, Y: 50, Width: 10, Height: 10, Score: 0.7},
	}
	kept := detector.suppress(sorted)
	if len(kept) != 2 || kept[1].X != 50 {
		t.Errorf("Expected overlapping region to be suppressed, got %+v", kept)
	}
}

func TestGetDominantColors(t *testing.T) {
	detector := New()
	img := createTestImage(200, 200)

	// Inside the white square
	colors := detector.GetDominantColors(img, Region{X: 60, Y: 60, Width: 30, Height: 80})
	if len(colors) == 0 {
		t.Fatal("Expected to find at least one dominant color")
	}
	if colorName(colors[0]) != "white" {
		t.Errorf("Expected white to dominate, got %v", colors[0])
	}
}

func TestColorName(t *testing.T) {
	cases := []struct {
		c    color.Color
		want string
	}{
		{color.RGBA{10, 10, 10, 255}, "dark"},
		{color.RGBA{240, 240, 240, 255}, "white"},
		{color.RGBA{128, 128, 128, 255}, "grey"},
		{color.RGBA{220, 30, 30, 255}, "red"},
		{color.RGBA{30, 200, 30, 255}, "green"},
		{color.RGBA{30, 30, 200, 255}, "blue"},
		{color.RGBA{230, 200, 40, 255}, "yellow"},
	}
	for _, tc := range cases {
		if got := colorName(tc.c); got != tc.want {
			t.Errorf("colorName(%v) = %q, want %q", tc.c, got, tc.want)
		}
	}
}

func TestCalculateSaliencyMap(t *testing.T) {
	detector := New()
	saliencyMap := detector.calculateSaliencyMap(createTestImage(100, 100))

	if len(saliencyMap) != 100 || len(saliencyMap[0]) != 100 {
		t.Fatalf("Expected 100x100 saliency map, got %dx%d", len(saliencyMap[0]), len(saliencyMap))
	}

	hasNonZero := false
	for y := 1; y < 99 && !hasNonZero; y++ {
		for x := 1; x < 99; x++ {
			if saliencyMap[y][x] > 0 {
				hasNonZero = true
				break
			}
		}
	}
	if !hasNonZero {
		t.Error("Expected saliency map to have some non-zero values")
	}
}

func BenchmarkDetect(b *testing.B) {
	detector := New()
	img := createTestImage(1280, 720)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector.Detect(ctx, img)
	}
}
