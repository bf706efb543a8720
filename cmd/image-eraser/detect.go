package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-eraser/internal/config"
	"github.com/menta2k/image-eraser/internal/utils"
	"github.com/menta2k/image-eraser/pkg/processing"
)

func newDetectCmd(a *app) *cobra.Command {
	var (
		in      string
		backend string
		model   string
		url     string
		outDir  string
		debug   bool
		probe   bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Propose removable objects in an image",
		Long: `Runs the configured detection backend and prints the detections as JSON.

Boxes are [x1, y1, x2, y2] in the image's native pixels. When --in is a
directory every image inside it is processed and one JSON file per image is
written to the output directory.`,
		Example: `  # Detect with a local Ollama model
  image-eraser detect --in street.jpg

  # Use the offline saliency detector and save a debug overlay
  image-eraser detect --in street.jpg --backend local --debug --out out

  # Check that the model can see images at all
  image-eraser detect --in street.jpg --probe

  # Batch a directory with Gemini
  image-eraser detect --in photos/ --backend gemini --out out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := &a.config.Detection
			if backend != "" {
				dc.Backend = strings.ToLower(backend)
			}
			if model != "" {
				dc.Model = model
			}
			if url != "" {
				switch dc.Backend {
				case config.BackendOllama:
					dc.OllamaURL = url
				case config.BackendLlamaCpp:
					dc.LlamaCppURL = url
				}
			}
			if err := a.config.Validate(); err != nil {
				return err
			}

			if probe {
				img, _, err := a.eraser.Load(in)
				if err != nil {
					return err
				}
				reply, err := a.eraser.Probe(cmd.Context(), img)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			}

			info, err := os.Stat(in)
			if err == nil && info.IsDir() {
				files, err := utils.ListImageFiles(in)
				if err != nil {
					return fmt.Errorf("failed to list images: %w", err)
				}
				if outDir == "" {
					outDir = a.config.Output.OutputDir
				}
				slog.Info("batch detection", "dir", in, "images", len(files))
				for _, f := range files {
					if _, err := a.eraser.Inspect(f); err != nil {
						slog.Warn("skipping image", "path", f, "err", err)
						continue
					}
					if err := a.detectOne(cmd, f, outDir, debug, false); err != nil {
						slog.Error("detection failed", "path", f, "err", err)
					}
				}
				return nil
			}

			return a.detectOne(cmd, in, outDir, debug, true)
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "input image path, directory or URL (jpg/png/webp)")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "detection backend: ollama, llamacpp, gemini or local")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model name (default depends on backend)")
	cmd.Flags().StringVar(&url, "url", "", "server URL for ollama or llamacpp")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for JSON and debug images")
	cmd.Flags().BoolVar(&debug, "debug", false, "write an overlay of the detections")
	cmd.Flags().BoolVar(&probe, "probe", false, "only ask the model to describe the image")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func (a *app) detectOne(cmd *cobra.Command, in, outDir string, debug, toStdout bool) error {
	img, info, err := a.eraser.Load(in)
	if err != nil {
		return err
	}
	slog.Info("image loaded", "path", in, "size", info.Size().String(), "format", info.Format)

	dets, err := a.eraser.Detect(cmd.Context(), img)
	if err != nil {
		return err
	}
	for i, d := range dets {
		slog.Debug("detection", "index", i, "label", d.Label, "conf", d.Confidence, "box", d.Box)
	}

	if toStdout {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(dets); err != nil {
			return err
		}
	}
	if outDir != "" {
		path := a.outputPath(in, outDir, "_detections", "json")
		if err := writeJSONFile(path, dets); err != nil {
			return fmt.Errorf("failed to write detections: %w", err)
		}
		logWritten(path)
	}
	if debug {
		if outDir == "" {
			outDir = a.config.Output.OutputDir
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return err
		}
		overlay := processing.NewProcessor().CreateDebugOverlay(img, dets, -1)
		path := a.outputPath(in, outDir, "_detections", "png")
		if err := a.eraser.SaveImage(overlay, path); err != nil {
			return fmt.Errorf("debug overlay save failed: %w", err)
		}
		logWritten(path)
	}
	return nil
}
