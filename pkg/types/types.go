package types

import (
	"encoding/json"
	"fmt"
)

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned box in image-space pixels, corners (X1,Y1) and (X2,Y2).
type Rect struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Width returns X2-X1
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns Y2-Y1
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// MarshalJSON encodes the rect as [x1, y1, x2, y2], the layout detectors emit.
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X1, r.Y1, r.X2, r.Y2})
}

// UnmarshalJSON accepts the [x1, y1, x2, y2] layout.
func (r *Rect) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("box must be an array of numbers: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("box must have 4 coordinates, got %d", len(v))
	}
	r.X1, r.Y1, r.X2, r.Y2 = v[0], v[1], v[2], v[3]
	return nil
}

// Detection is one candidate object reported by a detection service.
// Box is in image space (native pixels of the source image).
type Detection struct {
	Box        Rect    `json:"box"`
	Label      string  `json:"label"`
	Confidence float64 `json:"conf"`
}

// DetectionReport contains the raw object list returned by a vision model,
// with boxes still normalized to [0,1].
type DetectionReport struct {
	Objects     []DetectedObject `json:"objects"`
	Description string           `json:"description"`
}

// DetectedObject is a single model-reported object with a normalized box
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Selection is the finished result of one authoring interaction.
// It is either a BoxSelection or a RasterSelection.
type Selection interface {
	Kind() string
}

// BoxSelection selects a detector box, in image-space coordinates.
type BoxSelection struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Kind implements Selection
func (BoxSelection) Kind() string { return "box" }

// Rect returns the selection as a Rect
func (b BoxSelection) Rect() Rect { return Rect{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2} }

// RasterSelection carries an encoded mask image the size of the source image.
// Non-black pixels mark the region to erase.
type RasterSelection struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Kind implements Selection
func (RasterSelection) Kind() string { return "raster" }
