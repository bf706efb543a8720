package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/menta2k/image-eraser/pkg/types"
)

type fakeClient struct {
	report *types.DetectionReport
	err    error
	prompt string
	model  string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a test image", f.err
}

func (f *fakeClient) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionReport, error) {
	f.model, f.prompt = model, prompt
	return f.report, f.err
}

func TestDetect(t *testing.T) {
	fc := &fakeClient{report: &types.DetectionReport{Objects: []types.DetectedObject{
		{Label: " Street Sign ", Confidence: 0.8, Box: types.Box{X: 0.1, Y: 0.2, W: 0.25, H: 0.5}},
		{Label: "car", Confidence: 0.9, Box: types.Box{X: 0.5, Y: 0.5, W: 0.5, H: 0.5}},
	}}}
	d := NewDetector(fc)

	dets, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 800, 600)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(dets))
	}

	// model order is kept even though the car is more confident
	want := types.Detection{Box: types.Rect{X1: 80, Y1: 120, X2: 280, Y2: 420}, Label: "street sign", Confidence: 0.8}
	if dets[0] != want {
		t.Errorf("Expected %+v, got %+v", want, dets[0])
	}
	if dets[1].Label != "car" {
		t.Errorf("Expected car second, got %q", dets[1].Label)
	}
	if fc.prompt != DefaultPrompt || fc.model != DefaultConfig().Model {
		t.Errorf("Unexpected model call %q", fc.model)
	}
}

func TestDetectError(t *testing.T) {
	fc := &fakeClient{err: errors.New("connection refused")}
	if _, err := NewDetector(fc).Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10))); err == nil {
		t.Error("Expected backend error to propagate")
	}
}

func TestToDetectionsFilters(t *testing.T) {
	d := NewDetectorWithConfig(&fakeClient{}, Config{MinConfidence: 0.3, MaxObjects: 2})
	report := &types.DetectionReport{Objects: []types.DetectedObject{
		{Label: "none", Confidence: 0.9, Box: types.Box{W: 0.5, H: 0.5}},
		{Label: "faint", Confidence: 0.1, Box: types.Box{W: 0.5, H: 0.5}},
		{Label: "flat", Confidence: 0.9, Box: types.Box{X: 0.2, W: 0, H: 0.5}},
		{Label: "a", Confidence: 0.9, Box: types.Box{W: 0.5, H: 0.5}},
		{Label: "b", Confidence: 1.4, Box: types.Box{X: 0.8, Y: 0.8, W: 0.5, H: 0.5}},
		{Label: "c", Confidence: 0.9, Box: types.Box{W: 0.5, H: 0.5}},
	}}

	dets := d.ToDetections(report, 100, 100)
	if len(dets) != 2 {
		t.Fatalf("Expected 2 detections, got %d: %+v", len(dets), dets)
	}
	if dets[1].Confidence != 1 {
		t.Errorf("Confidence should clamp to 1, got %f", dets[1].Confidence)
	}
	if dets[1].Box != (types.Rect{X1: 80, Y1: 80, X2: 100, Y2: 100}) {
		t.Errorf("Box should clip to the image, got %+v", dets[1].Box)
	}
}

func TestNormalizeBoxPixels(t *testing.T) {
	got := normalizeBox(types.Box{X: 100, Y: 50, W: 200, H: 100}, 400, 200)
	want := types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	if got != want {
		t.Errorf("normalizeBox = %+v, want %+v", got, want)
	}
}
