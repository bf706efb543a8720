package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/types"
)

func newTransform(t *testing.T, natural, display geometry.Size) geometry.Transform {
	t.Helper()
	tf, err := geometry.New(natural, display)
	if err != nil {
		t.Fatalf("geometry.New failed: %v", err)
	}
	return tf
}

func TestNewRequiresLayout(t *testing.T) {
	if _, err := New(geometry.Size{}); err == nil {
		t.Error("Zero-size layer should fail")
	}

	l, err := New(geometry.Size{Width: 400, Height: 300})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.Size() != (geometry.Size{Width: 400, Height: 300}) {
		t.Errorf("Unexpected size %v", l.Size())
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		det  types.Detection
		want string
	}{
		{types.Detection{Label: "person", Confidence: 0.873}, "person 87%"},
		{types.Detection{Label: "dog", Confidence: 0.995}, "dog 100%"},
		{types.Detection{Label: "cup", Confidence: 0.125}, "cup 13%"},
		{types.Detection{Label: "car", Confidence: 0}, "car 0%"},
	}
	for _, tc := range cases {
		if got := Label(tc.det); got != tc.want {
			t.Errorf("Label(%+v) = %q, want %q", tc.det, got, tc.want)
		}
	}
}

func TestDrawDetectionsColours(t *testing.T) {
	style := DefaultStyle()
	l, _ := New(geometry.Size{Width: 400, Height: 300})
	tf := newTransform(t, geometry.Size{Width: 800, Height: 600}, geometry.Size{Width: 400, Height: 300})

	dets := []types.Detection{
		{Box: types.Rect{X1: 100, Y1: 100, X2: 300, Y2: 300}, Label: "cat", Confidence: 0.9},
		{Box: types.Rect{X1: 400, Y1: 300, X2: 700, Y2: 560}, Label: "sofa", Confidence: 0.6},
	}
	l.DrawDetections(dets, tf, 1)

	// left edge of the first box sits at display x=50
	if got := l.Image().NRGBAAt(50, 100); got != style.Base {
		t.Errorf("Unselected box edge should use base colour, got %v", got)
	}
	// left edge of the second box sits at display x=200
	if got := l.Image().NRGBAAt(200, 250); got != style.Accent {
		t.Errorf("Selected box edge should use accent colour, got %v", got)
	}
	// box interiors stay transparent
	if got := l.Image().NRGBAAt(100, 100); got.A != 0 {
		t.Errorf("Box interior should be transparent, got %v", got)
	}
	// chip is drawn above the top-left corner
	if got := l.Image().NRGBAAt(52, 30); got.A == 0 {
		t.Error("Label chip should be opaque above the box")
	}
}

func TestDrawDetectionsClearsPrevious(t *testing.T) {
	l, _ := New(geometry.Size{Width: 100, Height: 100})
	tf := newTransform(t, geometry.Size{Width: 100, Height: 100}, geometry.Size{Width: 100, Height: 100})

	l.FillCircle(geometry.Pt(90, 90), 5, color.NRGBA{255, 0, 0, 255})
	l.DrawDetections(nil, tf, -1)

	if got := l.Image().NRGBAAt(90, 90); got.A != 0 {
		t.Errorf("Redraw should clear earlier feedback, got %v", got)
	}
}

func TestFillCircle(t *testing.T) {
	l, _ := New(geometry.Size{Width: 100, Height: 100})
	col := color.NRGBA{236, 72, 153, 128}
	l.FillCircle(geometry.Pt(50, 50), 10, col)

	if got := l.Image().NRGBAAt(50, 50); got != col {
		t.Errorf("Centre should be painted, got %v", got)
	}
	if got := l.Image().NRGBAAt(50, 62); got.A != 0 {
		t.Errorf("Outside radius should stay clear, got %v", got)
	}
}

func TestProjectMask(t *testing.T) {
	natural := image.NewGray(image.Rect(0, 0, 200, 100))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			natural.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	l, _ := New(geometry.Size{Width: 100, Height: 50})
	col := color.NRGBA{236, 72, 153, 128}
	l.ProjectMask(natural, col)

	if got := l.Image().NRGBAAt(10, 10); got != col {
		t.Errorf("Erased quadrant should be tinted, got %v", got)
	}
	if got := l.Image().NRGBAAt(80, 40); got.A != 0 {
		t.Errorf("Kept area should stay clear, got %v", got)
	}
}

func BenchmarkDrawDetections(b *testing.B) {
	l, _ := New(geometry.Size{Width: 1280, Height: 720})
	tf, _ := geometry.New(geometry.Size{Width: 3840, Height: 2160}, geometry.Size{Width: 1280, Height: 720})
	dets := make([]types.Detection, 20)
	for i := range dets {
		x := float64(i * 150)
		dets[i] = types.Detection{Box: types.Rect{X1: x, Y1: 200, X2: x + 400, Y2: 900}, Label: "object", Confidence: 0.5}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.DrawDetections(dets, tf, 3)
	}
}
