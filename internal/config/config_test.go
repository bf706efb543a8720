package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Detection.Backend = "yolo" }},
		{name: "brush too small", mutate: func(c *Config) { c.Brush.Size = 2 }},
		{name: "brush too large", mutate: func(c *Config) { c.Brush.Size = 80 }},
		{name: "bad mask format", mutate: func(c *Config) { c.Selection.MaskFormat = "jpg" }},
		{name: "confidence above one", mutate: func(c *Config) { c.Detection.MinConfidence = 1.5 }},
		{name: "no formats", mutate: func(c *Config) { c.Image.SupportedFormats = nil }},
		{name: "zero upload limit", mutate: func(c *Config) { c.Server.MaxUploadMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			c := Default()
			c.Brush.Size = 33
			c.Detection.Backend = BackendLocal

			if err := c.SaveToFile(path); err != nil {
				t.Fatalf("SaveToFile failed: %v", err)
			}
			loaded, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile failed: %v", err)
			}
			if loaded.Brush.Size != 33 || loaded.Detection.Backend != BackendLocal {
				t.Errorf("Round trip lost values: %+v", loaded)
			}
		})
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("brush:\n  size: 12\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if c.Brush.Size != 12 {
		t.Errorf("Expected brush size 12, got %d", c.Brush.Size)
	}
	if c.Preview.Width != 256 {
		t.Errorf("Unset fields should keep defaults, got preview width %d", c.Preview.Width)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Malformed file should fail")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IMAGE_ERASER_BACKEND", "Gemini")
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("PORT", "9000")

	c := Default()
	c.ApplyEnv()

	if c.Detection.Backend != BackendGemini {
		t.Errorf("Expected gemini backend, got %q", c.Detection.Backend)
	}
	if c.Detection.OllamaURL != "http://gpu-box:11434" || c.Detection.GeminiAPIKey != "secret" {
		t.Errorf("Env overrides not applied: %+v", c.Detection)
	}
	if c.Server.Port != "9000" {
		t.Errorf("Expected port 9000, got %q", c.Server.Port)
	}
}
