package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/image-ocr/pkg/types"
)

// Config holds the application configuration
type Config struct {
	OCR    OCRConfig    `json:"ocr" yaml:"ocr"`
	Input  InputConfig  `json:"input" yaml:"input"`
	Output OutputConfig `json:"output" yaml:"output"`
}

// OCRConfig selects and tunes the recognition backend
type OCRConfig struct {
	Backend             string `json:"backend" yaml:"backend"`
	URL                 string `json:"url" yaml:"url"`
	Model               string `json:"model" yaml:"model"`
	Language            string `json:"language" yaml:"language"`
	Mode                string `json:"mode" yaml:"mode"`
	CandidatesPerRegion int    `json:"candidates_per_region" yaml:"candidates_per_region"`
	TimeoutSeconds      int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// InputConfig holds configuration for image selection and upload encoding
type InputConfig struct {
	SupportedFormats []string `json:"supported_formats" yaml:"supported_formats"`
	SendFormat       string   `json:"send_format" yaml:"send_format"`
	SendSize         int      `json:"send_size" yaml:"send_size"`
	SendQuality      int      `json:"send_quality" yaml:"send_quality"`
}

// OutputConfig holds configuration for result export
type OutputConfig struct {
	OutputDir       string `json:"output_dir" yaml:"output_dir"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	Suffix          string `json:"suffix" yaml:"suffix"`
	Dictionary      string `json:"dictionary" yaml:"dictionary"`
	CopyToClipboard bool   `json:"copy_to_clipboard" yaml:"copy_to_clipboard"`
	DebugOverlay    bool   `json:"debug_overlay" yaml:"debug_overlay"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		OCR: OCRConfig{
			Backend:             "ollama",
			URL:                 "",
			Model:               "",
			Language:            "ja",
			Mode:                string(types.ModeAccurate),
			CandidatesPerRegion: 1,
			TimeoutSeconds:      300,
		},
		Input: InputConfig{
			SupportedFormats: []string{"jpg", "jpeg", "png", "webp"},
			SendFormat:       "png",
			SendSize:         2048,
			SendQuality:      90,
		},
		Output: OutputConfig{
			OutputDir: "./output",
			Prefix:    "",
			Suffix:    "_ocr",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Values missing
// from the file keep their defaults.
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

// SaveToFile saves configuration as JSON or YAML depending on the extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
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

// ApplyEnv overrides settings from IMAGE_OCR_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("IMAGE_OCR_BACKEND"); v != "" {
		c.OCR.Backend = v
	}
	if v := os.Getenv("IMAGE_OCR_URL"); v != "" {
		c.OCR.URL = v
	}
	if v := os.Getenv("IMAGE_OCR_MODEL"); v != "" {
		c.OCR.Model = v
	}
	if v := os.Getenv("IMAGE_OCR_LANGUAGE"); v != "" {
		c.OCR.Language = v
	}
	if v := os.Getenv("IMAGE_OCR_DICTIONARY"); v != "" {
		c.Output.Dictionary = v
	}
}

// RecognitionOptions converts the OCR section into backend options
func (c *Config) RecognitionOptions() types.RecognitionOptions {
	return types.RecognitionOptions{
		Language:            c.OCR.Language,
		Mode:                types.Mode(c.OCR.Mode),
		CandidatesPerRegion: c.OCR.CandidatesPerRegion,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.OCR.Backend {
	case "tesseract", "ollama", "llamacpp":
	default:
		return fmt.Errorf("ocr.backend must be one of tesseract, ollama, llamacpp")
	}

	if _, err := types.ParseLanguage(c.OCR.Language); err != nil {
		return fmt.Errorf("ocr.language: %w", err)
	}

	switch types.Mode(c.OCR.Mode) {
	case types.ModeAccurate, types.ModeFast:
	default:
		return fmt.Errorf("ocr.mode must be accurate or fast")
	}

	if c.OCR.CandidatesPerRegion != 1 {
		return fmt.Errorf("ocr.candidates_per_region must be 1")
	}

	if c.OCR.TimeoutSeconds < 0 {
		return fmt.Errorf("ocr.timeout_seconds must not be negative")
	}

	if len(c.Input.SupportedFormats) == 0 {
		return fmt.Errorf("input.supported_formats cannot be empty")
	}

	switch strings.ToLower(c.Input.SendFormat) {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("input.send_format must be jpg or png")
	}

	if c.Input.SendSize < 0 {
		return fmt.Errorf("input.send_size must not be negative")
	}

	if c.Input.SendQuality < 1 || c.Input.SendQuality > 100 {
		return fmt.Errorf("input.send_quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-ocr", "config.json")
}
