package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-eraser/internal/utils"
	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/mask"
	"github.com/menta2k/image-eraser/pkg/processing"
	"github.com/menta2k/image-eraser/pkg/selector"
	"github.com/menta2k/image-eraser/pkg/types"
)

func newSelectCmd(a *app) *cobra.Command {
	var (
		in         string
		display    string
		click      string
		detections string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick a detected object by clicking on the displayed image",
		Long: `Lays the image out at the given display size, clicks at a display point
and writes the resulting box selection.

Outputs: the selection as JSON, the overlay as the user would see it, a mask
filled from the selected box and a preview thumbnail of the selected area.`,
		Example: `  # Click at (150,120) on an 800x600 display, detecting first
  image-eraser select --in street.jpg --display 800x600 --click 150,120

  # Reuse detections produced by 'image-eraser detect'
  image-eraser select --in street.jpg --display 800x600 --click 150,120 --detections out/street_detections.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			px, py, err := utils.ParsePoint(click)
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

			var dets []types.Detection
			if detections != "" {
				dets, err = readDetections(detections)
			} else {
				dets, err = a.eraser.Detect(cmd.Context(), img)
			}
			if err != nil {
				return err
			}

			var picked *types.BoxSelection
			session := a.eraser.NewSession(func(sel types.Selection) {
				if box, ok := sel.(types.BoxSelection); ok {
					picked = &box
				}
			})
			if err := session.Load(selector.Source{Path: in, Size: info.Size()}); err != nil {
				return err
			}
			if err := session.Resize(view); err != nil {
				return err
			}
			if err := session.SetDetections(dets); err != nil {
				return err
			}
			session.Click(geometry.Pt(px, py))

			if outDir == "" {
				outDir = a.config.Output.OutputDir
			}
			if err := utils.EnsureDir(outDir); err != nil {
				return err
			}

			overlayPath := a.outputPath(in, outDir, "_overlay", "png")
			composite := processing.NewProcessor().ComposeOverlay(img, session.Overlay().Image())
			if err := a.eraser.SaveImage(composite, overlayPath); err != nil {
				return fmt.Errorf("failed to save overlay: %w", err)
			}
			logWritten(overlayPath)

			if picked == nil {
				return fmt.Errorf("no detection at display point %.0f,%.0f (%d candidates)", px, py, len(dets))
			}
			slog.Info("selected", "label", dets[session.SelectedIndex()].Label,
				"box", fmt.Sprintf("%.0f,%.0f,%.0f,%.0f", picked.X1, picked.Y1, picked.X2, picked.Y2))

			selPath := a.outputPath(in, outDir, "_selection", "json")
			if err := writeJSONFile(selPath, picked); err != nil {
				return err
			}
			logWritten(selPath)

			m, err := session.BoxMask(*picked)
			if err != nil {
				return err
			}
			format, err := mask.ParseFormat(a.config.Selection.MaskFormat)
			if err != nil {
				return err
			}
			maskPath := a.outputPath(in, outDir, a.config.Output.Suffix, string(format))
			if err := writeMask(m, maskPath, format); err != nil {
				return err
			}

			res, err := a.eraser.Preview(img, *picked)
			if err != nil {
				return err
			}
			previewPath := a.outputPath(in, outDir, "_preview", "png")
			if err := a.eraser.SaveImage(res.Image, previewPath); err != nil {
				return fmt.Errorf("failed to save preview: %w", err)
			}
			logWritten(previewPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "input image path or URL")
	cmd.Flags().StringVarP(&display, "display", "d", "", "display size WxH (default: natural size)")
	cmd.Flags().StringVar(&click, "click", "", "click position x,y in display pixels")
	cmd.Flags().StringVar(&detections, "detections", "", "detections JSON file (default: run detection)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("click")

	return cmd
}

func writeMask(m *mask.Raster, path string, format mask.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mask file: %w", err)
	}
	if err := m.Encode(f, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode mask: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logWritten(path)
	return nil
}
