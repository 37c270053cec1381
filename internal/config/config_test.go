package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/image-captioner/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	style, err := cfg.Style()
	if err != nil || style != types.StyleCreative {
		t.Errorf("Expected creative default style, got %q (%v)", style, err)
	}
	if cfg.Model.ImageWidth != 384 || cfg.Model.ImageHeight != 384 {
		t.Errorf("Expected 384x384 normalization, got %dx%d", cfg.Model.ImageWidth, cfg.Model.ImageHeight)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty input", func(c *Config) { c.Input.Dir = "" }},
		{"no extensions", func(c *Config) { c.Input.Extensions = nil }},
		{"empty output", func(c *Config) { c.Output.Dir = "" }},
		{"no csv", func(c *Config) { c.Output.CSVFile = "" }},
		{"bad quality", func(c *Config) { c.Output.JPEGQuality = 0 }},
		{"bad backend", func(c *Config) { c.Model.Backend = "openai" }},
		{"no model", func(c *Config) { c.Model.Name = "" }},
		{"zero width", func(c *Config) { c.Model.ImageWidth = 0 }},
		{"bad send format", func(c *Config) { c.Model.SendFormat = "gif" }},
		{"bad send quality", func(c *Config) { c.Model.SendQuality = 101 }},
		{"negative timeout", func(c *Config) { c.Model.Timeout = -1 }},
		{"bad style", func(c *Config) { c.Caption.Style = "poetic" }},
		{"bad font size", func(c *Config) { c.Annotate.FontSize = 0 }},
		{"bad color", func(c *Config) { c.Annotate.Color = "white" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Input.Dir = "photos"
	cfg.Caption.Style = "factual"
	cfg.Model.APIKey = "secret"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("API key must not be written to the config file")
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Input.Dir != "photos" || loaded.Caption.Style != "factual" {
		t.Errorf("Loaded config mismatch: %+v", loaded)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"model":{"backend":"gemini","name":"gemini-2.5-flash"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Backend != BackendGemini {
		t.Errorf("Expected gemini backend, got %q", cfg.Model.Backend)
	}
	if cfg.Output.CSVFile != "captions.csv" || cfg.Model.ImageWidth != 384 {
		t.Error("Expected unspecified fields to keep defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Partial config should validate: %v", err)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0o644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CAPTIONER_TEST_STYLE=factual\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAPTIONER_TEST_STYLE", "")
	os.Unsetenv("CAPTIONER_TEST_STYLE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("CAPTIONER_TEST_STYLE"); got != "factual" {
		t.Errorf("Expected factual from .env, got %q", got)
	}
}
