package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/image-eraser/internal/utils"
	"github.com/menta2k/image-eraser/pkg/brush"
	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/processing"
	"github.com/menta2k/image-eraser/pkg/selector"
	"github.com/menta2k/image-eraser/pkg/types"
)

// paintScript is a recorded pointer session. A bare list of events is also
// accepted.
type paintScript struct {
	Display string           `yaml:"display"`
	Events  []selector.Event `yaml:"events"`
}

func readScript(path string) (paintScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return paintScript{}, fmt.Errorf("failed to read script: %w", err)
	}
	var script paintScript
	if err := yaml.Unmarshal(data, &script); err == nil {
		return script, nil
	}
	if err := yaml.Unmarshal(data, &script.Events); err != nil {
		return paintScript{}, fmt.Errorf("failed to parse script: %w", err)
	}
	return script, nil
}

func newPaintCmd(a *app) *cobra.Command {
	var (
		in         string
		display    string
		scriptPath string
		detections string
		format     string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "paint",
		Short: "Replay brush strokes and write the erase mask",
		Long: `Replays a YAML script of pointer events against the image laid out at the
display size, then submits the painted mask.

The mask has the image's native size: black keeps a pixel, white erases it.
A script that never switches to manual mode is switched before submitting.`,
		Example: `  # script.yaml
  display: 800x600
  events:
    - {type: mode, mode: manual}
    - {type: brush, size: 30}
    - {type: down, x: 100, y: 100}
    - {type: move, x: 180, y: 110}
    - {type: up}

  image-eraser paint --in street.jpg --script script.yaml --format webp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(scriptPath)
			if err != nil {
				return err
			}
			if display == "" {
				display = script.Display
			}
			if format == "" {
				format = a.config.Selection.MaskFormat
			}
			maskFormat, err := mask.ParseFormat(format)
			if err != nil {
				return err
			}

			img, info, err := a.eraser.Load(in)
			if err != nil {
				return err
			}
			view := info.Size()
			if display != "" {
				w, h, err := utils.ParseDimensions(display)
				if err != nil {
					return err
				}
				view = geometry.Size{Width: w, Height: h}
			}

			opts := a.eraser.SessionOptions()
			opts.MaskFormat = maskFormat
			var submitted *types.RasterSelection
			var picked []types.BoxSelection
			session := selector.New(func(sel types.Selection) {
				switch s := sel.(type) {
				case types.RasterSelection:
					submitted = &s
				case types.BoxSelection:
					picked = append(picked, s)
				}
			}, opts)

			if err := session.Load(selector.Source{Path: in, Size: info.Size()}); err != nil {
				return err
			}
			if err := session.Resize(view); err != nil {
				return err
			}
			if detections != "" {
				dets, err := readDetections(detections)
				if err != nil {
					return err
				}
				if err := session.SetDetections(dets); err != nil {
					return err
				}
			}

			if err := session.ApplyAll(script.Events); err != nil {
				return err
			}
			for _, box := range picked {
				slog.Info("box selected during replay", "box", box.Rect())
			}
			if submitted == nil {
				if err := session.SetMode(selector.ModeManual); err != nil {
					return err
				}
				if err := session.Submit(); err != nil {
					return err
				}
			}
			// Events after a submit may keep painting, so everything written
			// below derives from the submitted bytes.
			final, err := mask.Decode(submitted.Data)
			if err != nil {
				return fmt.Errorf("submitted mask is unreadable: %w", err)
			}
			slog.Info("mask submitted", "events", len(script.Events),
				"erased", final.EraseCount(), "bounds", final.Bounds())

			if outDir == "" {
				outDir = a.config.Output.OutputDir
			}
			if err := utils.EnsureDir(outDir); err != nil {
				return err
			}

			maskPath := a.outputPath(in, outDir, a.config.Output.Suffix, string(maskFormat))
			if err := os.WriteFile(maskPath, submitted.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write mask: %w", err)
			}
			logWritten(maskPath)

			processor := processing.NewProcessor()
			overlayPath := a.outputPath(in, outDir, "_overlay", "png")
			if err := a.eraser.SaveImage(processor.ComposeOverlay(img, session.Overlay().Image()), overlayPath); err != nil {
				return fmt.Errorf("failed to save overlay: %w", err)
			}
			logWritten(overlayPath)

			tinted, err := processor.MaskPreview(img, final.Image(), brush.FeedbackColor)
			if err != nil {
				return err
			}
			previewPath := a.outputPath(in, outDir, "_preview", "png")
			if err := a.eraser.SaveImage(tinted, previewPath); err != nil {
				return fmt.Errorf("failed to save preview: %w", err)
			}
			logWritten(previewPath)

			if !final.IsEmpty() {
				res, err := a.eraser.Preview(img, *submitted)
				if err != nil {
					return err
				}
				thumbPath := a.outputPath(in, outDir, "_thumb", "png")
				if err := a.eraser.SaveImage(res.Image, thumbPath); err != nil {
					return fmt.Errorf("failed to save thumbnail: %w", err)
				}
				logWritten(thumbPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "input image path or URL")
	cmd.Flags().StringVarP(&display, "display", "d", "", "display size WxH (default: script display, then natural size)")
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "YAML file of pointer events")
	cmd.Flags().StringVar(&detections, "detections", "", "detections JSON file for click events in auto mode")
	cmd.Flags().StringVarP(&format, "format", "f", "", "mask format: png or webp")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}
