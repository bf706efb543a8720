// Package vision proposes candidate objects without a model, from a simple
// edge and brightness saliency map. It is the offline fallback backend.
package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-eraser/pkg/types"
)

// Detector finds salient regions and reports them as detections
type Detector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for saliency detection
type DetectionConfig struct {
	EdgeThreshold   float64
	ContrastWeight  float64
	ColorWeight     float64
	MinSubjectRatio float64
	MaxRegions      int
	// IoUThreshold suppresses windows overlapping a better one by more than this
	IoUThreshold float64
	// WorkingSize is the longest side the image is reduced to before scanning
	WorkingSize int
}

// New creates a new Detector with default configuration
func New() *Detector {
	return &Detector{
		config: DetectionConfig{
			EdgeThreshold:   0.01,
			ContrastWeight:  0.3,
			ColorWeight:     0.2,
			MinSubjectRatio: 0.01,
			MaxRegions:      8,
			IoUThreshold:    0.3,
			WorkingSize:     256,
		},
	}
}

// NewWithConfig creates a new Detector with custom configuration
func NewWithConfig(config DetectionConfig) *Detector {
	return &Detector{config: config}
}

// Region represents a rectangular region of interest
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// IoU returns intersection over union with another region
func (r Region) IoU(o Region) float64 {
	ix := max(0, min(r.X+r.Width, o.X+o.Width)-max(r.X, o.X))
	iy := max(0, min(r.Y+r.Height, o.Y+o.Height)-max(r.Y, o.Y))
	inter := ix * iy
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Detect returns salient regions of img as detections in image-space pixels,
// most salient first. Confidence is relative to the strongest region.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]types.Detection, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	work := image.Image(img)
	scale := 1.0
	if ws := d.config.WorkingSize; ws > 0 && (bounds.Dx() > ws || bounds.Dy() > ws) {
		work = imaging.Fit(img, ws, ws, imaging.Box)
		scale = float64(bounds.Dx()) / float64(work.Bounds().Dx())
	}

	regions, err := d.DetectRegions(ctx, work)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return []types.Detection{}, nil
	}

	top := regions[0].Score
	dets := make([]types.Detection, 0, len(regions))
	for _, r := range regions {
		label := "object"
		if colors := d.GetDominantColors(work, r); len(colors) > 0 {
			label = colorName(colors[0]) + " object"
		}
		dets = append(dets, types.Detection{
			Box: types.Rect{
				X1: math.Round(float64(r.X) * scale),
				Y1: math.Round(float64(r.Y) * scale),
				X2: math.Min(math.Round(float64(r.X+r.Width)*scale), float64(bounds.Dx())),
				Y2: math.Min(math.Round(float64(r.Y+r.Height)*scale), float64(bounds.Dy())),
			},
			Label:      label,
			Confidence: r.Score / top,
		})
	}
	return dets, nil
}

// DetectRegions scans img and returns non-overlapping salient regions in
// img's own pixel space
func (d *Detector) DetectRegions(ctx context.Context, img image.Image) ([]Region, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := d.calculateSaliencyMap(img)

	regions, err := d.findImportantRegions(ctx, saliencyMap, width, height)
	if err != nil {
		return nil, err
	}

	filtered := d.filterAndScoreRegions(regions, width, height)
	return d.suppress(filtered), nil
}

func (d *Detector) calculateSaliencyMap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := make([][]float64, height)
	for i := range saliencyMap {
		saliencyMap[i] = make([]float64, width)
	}

	neighbors := [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

	// Edge strength against the 8 neighbours plus brightness
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			var edgeStrength float64
			for _, offset := range neighbors {
				r2, g2, b2, _ := img.At(x+offset[0]+bounds.Min.X, y+offset[1]+bounds.Min.Y).RGBA()
				dr := float64(r1) - float64(r2)
				dg := float64(g1) - float64(g2)
				db := float64(b1) - float64(b2)
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edgeStrength /= 8.0 * 65535.0

			brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)

			saliencyMap[y][x] = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness
		}
	}

	return saliencyMap
}

func (d *Detector) findImportantRegions(ctx context.Context, saliencyMap [][]float64, width, height int) ([]Region, error) {
	var regions []Region

	// Square sliding windows at several scales
	windowSizes := []int{width / 16, width / 12, width / 8, width / 6, width / 4}

	for _, windowSize := range windowSizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if windowSize < 8 || windowSize > height {
			continue
		}
		step := max(windowSize/8, 1)

		for y := 0; y <= height-windowSize; y += step {
			for x := 0; x <= width-windowSize; x += step {
				score := d.calculateRegionScore(saliencyMap, x, y, windowSize, windowSize)
				if score > d.config.EdgeThreshold {
					regions = append(regions, Region{X: x, Y: y, Width: windowSize, Height: windowSize, Score: score})
				}
			}
		}
	}

	return regions, nil
}

func (d *Detector) calculateRegionScore(saliencyMap [][]float64, x, y, width, height int) float64 {
	var totalScore float64
	count := 0

	for ry := y; ry < y+height && ry < len(saliencyMap); ry++ {
		for rx := x; rx < x+width && rx < len(saliencyMap[0]); rx++ {
			totalScore += saliencyMap[ry][rx]
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return totalScore / float64(count)
}

func (d *Detector) filterAndScoreRegions(regions []Region, imageWidth, imageHeight int) []Region {
	var filtered []Region

	minArea := int(float64(imageWidth*imageHeight) * d.config.MinSubjectRatio)
	for _, region := range regions {
		if region.Area() >= minArea {
			filtered = append(filtered, region)
		}
	}

	// Highest score first; ties go to the larger window, then reading order
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].Area() > filtered[j].Area()
	})

	return filtered
}

// suppress keeps the best region of every overlapping cluster
func (d *Detector) suppress(sorted []Region) []Region {
	var kept []Region
	for _, r := range sorted {
		overlaps := false
		for _, k := range kept {
			if r.IoU(k) > d.config.IoUThreshold {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		kept = append(kept, r)
		if d.config.MaxRegions > 0 && len(kept) == d.config.MaxRegions {
			break
		}
	}
	return kept
}

// GetDominantColors extracts dominant colors from an image region, most frequent first
func (d *Detector) GetDominantColors(img image.Image, region Region) []color.Color {
	bounds := img.Bounds()

	// Color histogram
	colorMap := make(map[uint32]int)

	startX := max(region.X+bounds.Min.X, bounds.Min.X)
	startY := max(region.Y+bounds.Min.Y, bounds.Min.Y)
	endX := min(region.X+region.Width+bounds.Min.X, bounds.Max.X)
	endY := min(region.Y+region.Height+bounds.Min.Y, bounds.Max.Y)

	for y := startY; y < endY; y++ {
		for x := startX; x < endX; x++ {
			r, g, b, _ := img.At(x, y).RGBA()

			// Quantize colors to reduce noise
			r = (r >> 8) & 0xf0
			g = (g >> 8) & 0xf0
			b = (b >> 8) & 0xf0

			colorMap[(r<<16)|(g<<8)|b]++
		}
	}

	keys := make([]uint32, 0, len(colorMap))
	for k := range colorMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if colorMap[keys[i]] != colorMap[keys[j]] {
			return colorMap[keys[i]] > colorMap[keys[j]]
		}
		return keys[i] < keys[j]
	})

	var colors []color.Color
	if len(keys) == 0 {
		return colors
	}
	threshold := colorMap[keys[0]] / 4 // within 25% of the most frequent
	for _, k := range keys {
		if colorMap[k] < threshold || len(colors) >= 5 {
			break
		}
		colors = append(colors, color.RGBA{uint8(k >> 16), uint8(k >> 8), uint8(k), 255})
	}

	return colors
}

// colorName gives a coarse human name for a colour
func colorName(c color.Color) string {
	r, g, b, _ := c.RGBA()
	rf, gf, bf := float64(r>>8), float64(g>>8), float64(b>>8)
	hi := math.Max(rf, math.Max(gf, bf))
	lo := math.Min(rf, math.Min(gf, bf))

	switch {
	case hi < 60:
		return "dark"
	case hi-lo < 30 && lo > 200:
		return "white"
	case hi-lo < 30:
		return "grey"
	case hi == rf && gf > 0.6*rf:
		return "yellow"
	case hi == rf:
		return "red"
	case hi == gf:
		return "green"
	default:
		return "blue"
	}
}
