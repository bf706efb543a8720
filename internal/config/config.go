package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backends accepted in detection.backend
const (
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
	BackendGemini   = "gemini"
	BackendLocal    = "local"
)

// Config holds the application configuration
type Config struct {
	Image     ImageConfig     `json:"image" yaml:"image"`
	Detection DetectionConfig `json:"detection" yaml:"detection"`
	Vision    VisionConfig    `json:"vision" yaml:"vision"`
	Brush     BrushConfig     `json:"brush" yaml:"brush"`
	Selection SelectionConfig `json:"selection" yaml:"selection"`
	Preview   PreviewConfig   `json:"preview" yaml:"preview"`
	Output    OutputConfig    `json:"output" yaml:"output"`
	Server    ServerConfig    `json:"server" yaml:"server"`
}

// ImageConfig holds limits applied to source images
type ImageConfig struct {
	SupportedFormats []string `json:"supported_formats" yaml:"supported_formats"`
	MinImageSize     int      `json:"min_image_size" yaml:"min_image_size"`
	MaxPixels        int      `json:"max_pixels" yaml:"max_pixels"`
}

// DetectionConfig selects and tunes the detection backend
type DetectionConfig struct {
	Backend       string  `json:"backend" yaml:"backend"`
	// Model is empty for the backend's default model
	Model         string  `json:"model" yaml:"model"`
	OllamaURL     string  `json:"ollama_url" yaml:"ollama_url"`
	LlamaCppURL   string  `json:"llamacpp_url" yaml:"llamacpp_url"`
	GeminiAPIKey  string  `json:"-" yaml:"-"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
	MaxObjects    int     `json:"max_objects" yaml:"max_objects"`
	MaxImageDim   int     `json:"max_image_dim" yaml:"max_image_dim"`
}

// VisionConfig holds configuration for the local saliency detector
type VisionConfig struct {
	EdgeThreshold   float64 `json:"edge_threshold" yaml:"edge_threshold"`
	ContrastWeight  float64 `json:"contrast_weight" yaml:"contrast_weight"`
	ColorWeight     float64 `json:"color_weight" yaml:"color_weight"`
	MinSubjectRatio float64 `json:"min_subject_ratio" yaml:"min_subject_ratio"`
	MaxRegions      int     `json:"max_regions" yaml:"max_regions"`
	IoUThreshold    float64 `json:"iou_threshold" yaml:"iou_threshold"`
}

// BrushConfig holds brush defaults
type BrushConfig struct {
	Size        int  `json:"size" yaml:"size"`
	Interpolate bool `json:"interpolate" yaml:"interpolate"`
}

// SelectionConfig holds selection surface behaviour
type SelectionConfig struct {
	AllowEmptySubmit bool   `json:"allow_empty_submit" yaml:"allow_empty_submit"`
	MaskFormat       string `json:"mask_format" yaml:"mask_format"`
}

// PreviewConfig holds thumbnail settings
type PreviewConfig struct {
	Width        int     `json:"width" yaml:"width"`
	Height       int     `json:"height" yaml:"height"`
	PaddingRatio float64 `json:"padding_ratio" yaml:"padding_ratio"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	Suffix    string `json:"suffix" yaml:"suffix"`
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Port         string `json:"port" yaml:"port"`
	MaxUploadMB  int    `json:"max_upload_mb" yaml:"max_upload_mb"`
	MaxSessions  int    `json:"max_sessions" yaml:"max_sessions"`
	DetectOnLoad bool   `json:"detect_on_load" yaml:"detect_on_load"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Image: ImageConfig{
			SupportedFormats: []string{"jpg", "jpeg", "png", "webp"},
			MinImageSize:     16,
			MaxPixels:        64 << 20,
		},
		Detection: DetectionConfig{
			Backend:       BackendOllama,
			OllamaURL:     "http://localhost:11434",
			LlamaCppURL:   "http://localhost:8080",
			MinConfidence: 0.25,
			MaxObjects:    20,
			MaxImageDim:   1024,
		},
		Vision: VisionConfig{
			EdgeThreshold:   0.01,
			ContrastWeight:  0.3,
			ColorWeight:     0.2,
			MinSubjectRatio: 0.01,
			MaxRegions:      8,
			IoUThreshold:    0.3,
		},
		Brush: BrushConfig{
			Size:        20,
			Interpolate: false,
		},
		Selection: SelectionConfig{
			AllowEmptySubmit: false,
			MaskFormat:       "png",
		},
		Preview: PreviewConfig{
			Width:        256,
			Height:       256,
			PaddingRatio: 0.1,
		},
		Output: OutputConfig{
			OutputDir: "./output",
			Prefix:    "",
			Suffix:    "_mask",
		},
		Server: ServerConfig{
			Port:        "8888",
			MaxUploadMB: 10,
			MaxSessions: 64,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file, chosen by
// extension. Missing fields keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("IMAGE_ERASER_BACKEND"); v != "" {
		c.Detection.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("IMAGE_ERASER_MODEL"); v != "" {
		c.Detection.Model = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Detection.OllamaURL = v
	}
	if v := os.Getenv("LLAMACPP_URL"); v != "" {
		c.Detection.LlamaCppURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Detection.GeminiAPIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Image.MinImageSize < 1 {
		return fmt.Errorf("image.min_image_size must be positive")
	}

	if len(c.Image.SupportedFormats) == 0 {
		return fmt.Errorf("image.supported_formats cannot be empty")
	}

	switch c.Detection.Backend {
	case BackendOllama, BackendLlamaCpp, BackendGemini, BackendLocal:
	default:
		return fmt.Errorf("detection.backend must be one of ollama, llamacpp, gemini, local (got %q)", c.Detection.Backend)
	}

	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be between 0 and 1")
	}

	if c.Vision.EdgeThreshold < 0 || c.Vision.EdgeThreshold > 1 {
		return fmt.Errorf("vision.edge_threshold must be between 0 and 1")
	}

	if c.Vision.MinSubjectRatio < 0 || c.Vision.MinSubjectRatio > 1 {
		return fmt.Errorf("vision.min_subject_ratio must be between 0 and 1")
	}

	if c.Vision.IoUThreshold < 0 || c.Vision.IoUThreshold > 1 {
		return fmt.Errorf("vision.iou_threshold must be between 0 and 1")
	}

	if c.Brush.Size < 5 || c.Brush.Size > 50 {
		return fmt.Errorf("brush.size must be between 5 and 50")
	}

	switch strings.ToLower(c.Selection.MaskFormat) {
	case "", "png", "webp":
	default:
		return fmt.Errorf("selection.mask_format must be png or webp")
	}

	if c.Preview.PaddingRatio < 0 || c.Preview.PaddingRatio > 1 {
		return fmt.Errorf("preview.padding_ratio must be between 0 and 1")
	}

	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "image-eraser", "config.yaml")
}
