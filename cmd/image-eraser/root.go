package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	imageeraser "github.com/menta2k/image-eraser"
	"github.com/menta2k/image-eraser/internal/config"
	"github.com/menta2k/image-eraser/internal/utils"
	"github.com/menta2k/image-eraser/pkg/types"
)

// app carries state shared by every subcommand once PersistentPreRunE has run
type app struct {
	configPath string
	verbose    bool

	config *config.Config
	eraser *imageeraser.Eraser
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "image-eraser",
		Short: "Prepare erase selections for inpainting",
		Long: `image-eraser turns a photo into an erase selection for an inpainting service.

Objects are proposed by a vision model (Ollama, llama.cpp, Gemini) or a local
saliency detector. Pick one by clicking it, or paint the area by hand and
submit a native-resolution mask.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (yaml or json, default "+config.GetConfigPath()+")")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newDetectCmd(a),
		newSelectCmd(a),
		newPaintCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)

	return cmd
}

func (a *app) setup() error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	path := a.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
		slog.Debug("config loaded", "path", path)
	}
	cfg.ApplyEnv()

	eraser, err := imageeraser.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	eraser.SetLogger(logger)

	a.config = cfg
	a.eraser = eraser
	return nil
}

func readDetections(path string) ([]types.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	var dets []types.Detection
	if err := json.Unmarshal(data, &dets); err != nil {
		return nil, fmt.Errorf("failed to parse detections: %w", err)
	}
	return dets, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// outputPath names an artifact derived from the input image
func (a *app) outputPath(in, outDir, suffix, format string) string {
	if outDir == "" {
		outDir = a.config.Output.OutputDir
	}
	return utils.GenerateOutputFilename(in, outDir, a.config.Output.Prefix, suffix, format)
}

func logWritten(path string) {
	if info, err := os.Stat(path); err == nil {
		slog.Info("wrote", "path", path, "size", utils.FormatFileSize(info.Size()))
	}
}
