package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/image-captioner/pkg/types"
)

// Backends supported by the captioner
const (
	BackendOllama   = "ollama"
	BackendLlamaCPP = "llamacpp"
	BackendGemini   = "gemini"
)

// Config holds the application configuration
type Config struct {
	Input    InputConfig    `json:"input"`
	Output   OutputConfig   `json:"output"`
	Model    ModelConfig    `json:"model"`
	Caption  CaptionConfig  `json:"caption"`
	Annotate AnnotateConfig `json:"annotate"`
	Serve    ServeConfig    `json:"serve"`
}

// InputConfig describes where images are read from
type InputConfig struct {
	Dir        string   `json:"dir"`
	Extensions []string `json:"extensions"`
}

// OutputConfig describes where annotated images and reports go
type OutputConfig struct {
	Dir         string `json:"dir"`
	CSVFile     string `json:"csv_file"`
	JSONFile    string `json:"json_file"`
	JPEGQuality int    `json:"jpeg_quality"`
	WriteExif   bool   `json:"write_exif"`
}

// ModelConfig selects and tunes the captioning backend
type ModelConfig struct {
	Backend     string        `json:"backend"`
	URL         string        `json:"url"`
	Name        string        `json:"name"`
	APIKey      string        `json:"-"`
	ImageWidth  int           `json:"image_width"`
	ImageHeight int           `json:"image_height"`
	SendFormat  string        `json:"send_format"`
	SendQuality int           `json:"send_quality"`
	Timeout     time.Duration `json:"timeout"`
}

// CaptionConfig holds the caption style for batch runs
type CaptionConfig struct {
	Style string `json:"style"`
}

// AnnotateConfig controls caption drawing
type AnnotateConfig struct {
	FontPath string  `json:"font_path"`
	FontSize float64 `json:"font_size"`
	Color    string  `json:"color"`
	OffsetX  int     `json:"offset_x"`
	OffsetY  int     `json:"offset_y"`
}

// ServeConfig holds interactive front end settings
type ServeConfig struct {
	Addr string `json:"addr"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Dir:        "sample_images",
			Extensions: []string{".jpg", ".jpeg", ".png"},
		},
		Output: OutputConfig{
			Dir:         "captioned_images",
			CSVFile:     "captions.csv",
			JSONFile:    "captions.json",
			JPEGQuality: 95,
		},
		Model: ModelConfig{
			Backend:     BackendOllama,
			URL:         "http://localhost:11434",
			Name:        "llava",
			ImageWidth:  384,
			ImageHeight: 384,
			SendFormat:  "jpg",
			SendQuality: 90,
			Timeout:     5 * time.Minute,
		},
		Caption: CaptionConfig{
			Style: string(types.StyleCreative),
		},
		Annotate: AnnotateConfig{
			FontPath: "arial.ttf",
			FontSize: 18,
			Color:    "#ffffff",
			OffsetX:  10,
			OffsetY:  10,
		},
		Serve: ServeConfig{
			Addr: "localhost:7860",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Style returns the parsed caption style
func (c *Config) Style() (types.CaptionStyle, error) {
	return types.ParseStyle(c.Caption.Style)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input.Dir == "" {
		return fmt.Errorf("input.dir cannot be empty")
	}

	if len(c.Input.Extensions) == 0 {
		return fmt.Errorf("input.extensions cannot be empty")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}

	if c.Output.CSVFile == "" || c.Output.JSONFile == "" {
		return fmt.Errorf("output.csv_file and output.json_file are required")
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100")
	}

	switch c.Model.Backend {
	case BackendOllama, BackendLlamaCPP, BackendGemini:
	default:
		return fmt.Errorf("model.backend must be one of ollama, llamacpp, gemini (got %q)", c.Model.Backend)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model.name cannot be empty")
	}

	if c.Model.ImageWidth < 1 || c.Model.ImageHeight < 1 {
		return fmt.Errorf("model.image_width and model.image_height must be positive")
	}

	switch c.Model.SendFormat {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("model.send_format must be jpg or png")
	}

	if c.Model.SendQuality < 1 || c.Model.SendQuality > 100 {
		return fmt.Errorf("model.send_quality must be between 1 and 100")
	}

	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout cannot be negative")
	}

	if _, err := c.Style(); err != nil {
		return fmt.Errorf("caption.style: %w", err)
	}

	if c.Annotate.FontSize <= 0 {
		return fmt.Errorf("annotate.font_size must be positive")
	}

	if _, err := colorful.Hex(c.Annotate.Color); err != nil {
		return fmt.Errorf("annotate.color must be a hex color like #ffffff")
	}

	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-captioner", "config.json")
}
