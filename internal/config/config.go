// Package config provides Viper-based configuration for image-geometry
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
)

// EnvPrefix prefixes environment overrides, e.g. IMAGE_GEOMETRY_LIMITS_MAX_WIDTH
const EnvPrefix = "IMAGE_GEOMETRY"

// Config holds the application configuration
type Config struct {
	Limits   LimitsConfig   `mapstructure:"limits"`
	Output   OutputConfig   `mapstructure:"output"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Cropper  CropperConfig  `mapstructure:"cropper"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// LimitsConfig bounds request sizes; 0 disables an axis
type LimitsConfig struct {
	MaxWidth  int `mapstructure:"max_width"`
	MaxHeight int `mapstructure:"max_height"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format   string `mapstructure:"format"`
	Quality  int    `mapstructure:"quality"`
	Lossless bool   `mapstructure:"lossless"`
	Dir      string `mapstructure:"dir"`
	Prefix   string `mapstructure:"prefix"`
	Suffix   string `mapstructure:"suffix"`
	Colors   bool   `mapstructure:"colors"`
}

// VisionConfig configures the vision model used by detect
type VisionConfig struct {
	URL         string        `mapstructure:"url"`
	Model       string        `mapstructure:"model"`
	SendSize    int           `mapstructure:"send_size"`
	SendFormat  string        `mapstructure:"send_format"`
	SendQuality int           `mapstructure:"send_quality"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AnalyzerConfig holds configuration for image validation
type AnalyzerConfig struct {
	MinImageSize     int      `mapstructure:"min_image_size"`
	SupportedFormats []string `mapstructure:"supported_formats"`
}

// CropperConfig holds configuration for aspect crops
type CropperConfig struct {
	Zoom             float64 `mapstructure:"zoom"`
	QualityThreshold float64 `mapstructure:"quality_threshold"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SizeLimits returns the request size limits as dimensions
func (c *Config) SizeLimits() geometry.Dimensions {
	return geometry.NewDimensions(c.Limits.MaxWidth, c.Limits.MaxHeight)
}

// OutputFormat returns the parsed output format
func (c *Config) OutputFormat() modifier.Format {
	f, _ := modifier.ParseFormat(c.Output.Format)
	return f
}

// flagKeys maps command line flags onto config keys
var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"max-width":  "limits.max_width",
	"max-height": "limits.max_height",
	"out":        "output.dir",
	"quality":    "output.quality",
	"lossless":   "output.lossless",
	"prefix":     "output.prefix",
	"suffix":     "output.suffix",
	"url":        "vision.url",
	"model":      "vision.model",
	"send-size":  "vision.send_size",
	"timeout":    "vision.timeout",
	"zoom":       "cropper.zoom",
}

// Load reads configuration from flags, environment variables and file, in
// that order of precedence. Only flags that were set on the command line
// override lower layers. A missing default config file is not an error; a
// missing explicit one is.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".image-geometry")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/image-geometry")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("limits.max_width", 4096)
	v.SetDefault("limits.max_height", 4096)

	v.SetDefault("output.format", "")
	v.SetDefault("output.quality", 85)
	v.SetDefault("output.lossless", false)
	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.prefix", "")
	v.SetDefault("output.suffix", "")
	v.SetDefault("output.colors", true)

	v.SetDefault("vision.url", "http://localhost:11434")
	v.SetDefault("vision.model", "openbmb/minicpm-v4.5")
	v.SetDefault("vision.send_size", 768)
	v.SetDefault("vision.send_format", "jpg")
	v.SetDefault("vision.send_quality", 85)
	v.SetDefault("vision.timeout", 5*time.Minute)

	v.SetDefault("analyzer.min_image_size", 1)
	v.SetDefault("analyzer.supported_formats", []string{"jpg", "jpeg", "png", "gif", "webp"})

	v.SetDefault("cropper.zoom", 1.0)
	v.SetDefault("cropper.quality_threshold", 0.7)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Limits.MaxWidth < 0 || c.Limits.MaxHeight < 0 {
		return fmt.Errorf("limits must not be negative")
	}

	if _, err := modifier.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Vision.SendSize < 0 {
		return fmt.Errorf("vision.send_size must not be negative")
	}
	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}

	if c.Analyzer.MinImageSize < 1 {
		return fmt.Errorf("analyzer.min_image_size must be positive")
	}
	if len(c.Analyzer.SupportedFormats) == 0 {
		return fmt.Errorf("analyzer.supported_formats cannot be empty")
	}

	if c.Cropper.Zoom <= 0 || c.Cropper.Zoom > 1 {
		return fmt.Errorf("cropper.zoom must be in (0, 1]")
	}
	if c.Cropper.QualityThreshold < 0 || c.Cropper.QualityThreshold > 1 {
		return fmt.Errorf("cropper.quality_threshold must be between 0 and 1")
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// SlogLevel maps the configured level name
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", l.Level)
}

// NewLogger builds the logger described by the config. verbose forces
// debug level.
func (l LoggingConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, _ := l.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// GetConfigPath returns the per-user configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".image-geometry.yaml"
	}
	return filepath.Join(home, ".config", "image-geometry", ".image-geometry.yaml")
}
