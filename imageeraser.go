// Package imageeraser prepares erase selections for an inpainting service.
//
// A user either picks one of the objects a detector proposes (a box
// selection) or paints the region by hand (a raster mask at the image's
// native resolution). The package wires image loading, detection backends
// and the interactive selection session together.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		imageeraser "github.com/menta2k/image-eraser"
//		"github.com/menta2k/image-eraser/pkg/geometry"
//		"github.com/menta2k/image-eraser/pkg/selector"
//		"github.com/menta2k/image-eraser/pkg/types"
//	)
//
//	func main() {
//		eraser, err := imageeraser.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		img, info, err := eraser.Load("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		dets, err := eraser.Detect(context.Background(), img)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		session := eraser.NewSession(func(sel types.Selection) {
//			fmt.Println("selected:", sel.Kind())
//		})
//		session.Load(selector.Source{Path: "photo.jpg", Size: info.Size()})
//		session.Resize(geometry.Size{Width: 800, Height: 600})
//		session.SetDetections(dets)
//		session.Click(geometry.Pt(120, 80))
//	}
//
// The package consists of these components:
//
// 1. Geometry (pkg/geometry): display to image coordinate mapping
// 2. Overlay (pkg/overlay): detection boxes and brush feedback at display size
// 3. Mask (pkg/mask): the native-resolution erase mask
// 4. Brush (pkg/brush): circular stamps into overlay and mask
// 5. Selector (pkg/selector): Auto/Manual mode state machine and emission
// 6. Detection backends (pkg/detection, pkg/vision, pkg/ollama, pkg/llamacpp, pkg/gemini)
package imageeraser

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/menta2k/image-eraser/internal/config"
	"github.com/menta2k/image-eraser/internal/utils"
	"github.com/menta2k/image-eraser/pkg/detection"
	"github.com/menta2k/image-eraser/pkg/gemini"
	"github.com/menta2k/image-eraser/pkg/llamacpp"
	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/ollama"
	"github.com/menta2k/image-eraser/pkg/photo"
	"github.com/menta2k/image-eraser/pkg/preview"
	"github.com/menta2k/image-eraser/pkg/processing"
	"github.com/menta2k/image-eraser/pkg/selector"
	"github.com/menta2k/image-eraser/pkg/types"
	"github.com/menta2k/image-eraser/pkg/vision"
)

// Version of the image eraser library
const Version = "0.1.0"

// Default models per backend, used when the config leaves the model empty
const (
	DefaultOllamaModel   = "qwen2.5vl:7b"
	DefaultLlamaCppModel = "qwen2.5-vl"
	DefaultGeminiModel   = "gemini-2.0-flash"
)

// Detector is implemented by every detection backend
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]types.Detection, error)
}

var (
	_ Detector = (*detection.ModelDetector)(nil)
	_ Detector = (*vision.Detector)(nil)
)

// Eraser provides a high-level interface over loading, detection and
// selection sessions
type Eraser struct {
	config    *config.Config
	inspector *photo.Inspector
	processor *processing.Processor
	previewer *preview.Previewer
	logger    *slog.Logger

	mu       sync.Mutex
	detector Detector
}

// New creates an Eraser with the default configuration
func New() (*Eraser, error) {
	return NewWithConfig(config.Default())
}

// NewWithConfig creates an Eraser from cfg. The detection backend is built
// lazily on the first Detect call.
func NewWithConfig(cfg *config.Config) (*Eraser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Eraser{
		config: cfg,
		inspector: photo.NewWithConfig(photo.Config{
			SupportedFormats: cfg.Image.SupportedFormats,
			MinImageSize:     cfg.Image.MinImageSize,
			MaxPixels:        cfg.Image.MaxPixels,
		}),
		processor: processing.NewProcessor(),
		previewer: preview.NewWithConfig(preview.Config{
			Width:        cfg.Preview.Width,
			Height:       cfg.Preview.Height,
			PaddingRatio: cfg.Preview.PaddingRatio,
			AspectRatio:  preview.Free,
		}),
		logger: slog.Default(),
	}, nil
}

// Config returns the active configuration
func (e *Eraser) Config() *config.Config { return e.config }

// SetLogger replaces the logger handed to new sessions
func (e *Eraser) SetLogger(logger *slog.Logger) { e.logger = logger }

// SetDetector overrides the configured detection backend
func (e *Eraser) SetDetector(d Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detector = d
}

// Load decodes and validates an image from a local path or http(s) URL
func (e *Eraser) Load(source string) (image.Image, photo.Info, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		img, err := e.processor.LoadImageFromURL(source)
		if err != nil {
			return nil, photo.Info{}, err
		}
		info := e.inspector.GetImageInfo(img)
		if err := e.inspector.Validate(info); err != nil {
			return nil, photo.Info{}, err
		}
		return img, info, nil
	}
	return e.inspector.Load(source)
}

// Inspect reads only the header of an image file and validates its size
func (e *Eraser) Inspect(path string) (photo.Info, error) {
	return e.inspector.InspectFile(path)
}

// LoadFromReader decodes and validates an image from r
func (e *Eraser) LoadFromReader(r io.Reader) (image.Image, photo.Info, error) {
	return e.inspector.LoadFromReader(r)
}

// Detect runs the configured backend on img
func (e *Eraser) Detect(ctx context.Context, img image.Image) ([]types.Detection, error) {
	detector, err := e.getDetector()
	if err != nil {
		return nil, err
	}
	dets, err := detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s detection failed: %w", e.config.Detection.Backend, err)
	}
	e.logger.Info("objects detected", "backend", e.config.Detection.Backend, "count", len(dets))
	return dets, nil
}

// Probe asks a model backend to describe img, confirming the model can see
// images at all
func (e *Eraser) Probe(ctx context.Context, img image.Image) (string, error) {
	detector, err := e.getDetector()
	if err != nil {
		return "", err
	}
	md, ok := detector.(*detection.ModelDetector)
	if !ok {
		return "", fmt.Errorf("backend %s has no model to probe", e.config.Detection.Backend)
	}
	b64, err := e.processor.PrepareImageForModel(img, "jpg", e.config.Detection.MaxImageDim, 85)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image: %w", err)
	}
	return md.TestVision(ctx, b64)
}

// SessionOptions returns selector options derived from the config
func (e *Eraser) SessionOptions() selector.Options {
	opts := selector.DefaultOptions()
	opts.AllowEmptySubmit = e.config.Selection.AllowEmptySubmit
	opts.Interpolate = e.config.Brush.Interpolate
	opts.BrushSize = e.config.Brush.Size
	if f, err := mask.ParseFormat(e.config.Selection.MaskFormat); err == nil {
		opts.MaskFormat = f
	}
	opts.Logger = e.logger
	return opts
}

// NewSession creates a selection session that reports to emit
func (e *Eraser) NewSession(emit selector.Emitter) *selector.Session {
	return selector.New(emit, e.SessionOptions())
}

// Preview renders a thumbnail of the region sel covers in img
func (e *Eraser) Preview(img image.Image, sel types.Selection) (preview.Result, error) {
	switch s := sel.(type) {
	case types.BoxSelection:
		return e.previewer.Box(img, s)
	case types.RasterSelection:
		m, err := mask.Decode(s.Data)
		if err != nil {
			return preview.Result{}, fmt.Errorf("failed to decode mask: %w", err)
		}
		return e.previewer.Mask(img, m)
	default:
		return preview.Result{}, fmt.Errorf("unsupported selection kind: %s", sel.Kind())
	}
}

// SaveImage writes img in the format implied by path
func (e *Eraser) SaveImage(img image.Image, path string) error {
	format := utils.GetFileExtension(path)
	return e.processor.SaveImage(img, path, format, 95, format == "webp")
}

func (e *Eraser) getDetector() (Detector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detector == nil {
		d, err := e.newDetector()
		if err != nil {
			return nil, err
		}
		e.detector = d
	}
	return e.detector, nil
}

func (e *Eraser) newDetector() (Detector, error) {
	dc := e.config.Detection
	cfg := detection.DefaultConfig()
	cfg.MinConfidence = dc.MinConfidence
	cfg.MaxObjects = dc.MaxObjects
	if dc.MaxImageDim > 0 {
		cfg.MaxImageDim = dc.MaxImageDim
	}

	switch dc.Backend {
	case config.BackendOllama:
		c, err := ollama.NewClient(dc.OllamaURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		cfg.Model = modelOr(dc.Model, DefaultOllamaModel)
		return detection.NewDetectorWithConfig(c, cfg), nil
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(dc.LlamaCppURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		cfg.Model = modelOr(dc.Model, DefaultLlamaCppModel)
		return detection.NewDetectorWithConfig(c, cfg), nil
	case config.BackendGemini:
		c, err := gemini.NewClient(dc.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		cfg.Model = modelOr(dc.Model, DefaultGeminiModel)
		return detection.NewDetectorWithConfig(c, cfg), nil
	case config.BackendLocal:
		vc := e.config.Vision
		return vision.NewWithConfig(vision.DetectionConfig{
			EdgeThreshold:   vc.EdgeThreshold,
			ContrastWeight:  vc.ContrastWeight,
			ColorWeight:     vc.ColorWeight,
			MinSubjectRatio: vc.MinSubjectRatio,
			MaxRegions:      vc.MaxRegions,
			IoUThreshold:    vc.IoUThreshold,
			WorkingSize:     256,
		}), nil
	default:
		return nil, fmt.Errorf("unknown detection backend: %s", dc.Backend)
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
