// Package config defines the qrlens configuration and loads it from files,
// environment variables and command-line flags.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/batch"
	"github.com/MeKo-Tech/qrlens/internal/generate"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

// Config represents the complete configuration for qrlens. It covers every
// command (image, pdf, batch, generate, serve).
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan" json:"scan"`
	Generate GenerateConfig `mapstructure:"generate" yaml:"generate" json:"generate"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// ScanConfig controls the decode pipeline.
type ScanConfig struct {
	TryHarder  bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Formats    []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	Strategies []string `mapstructure:"strategies" yaml:"strategies" json:"strategies"`
	// MaxImageSize bounds the longer edge of scanned images; larger inputs are scaled down.
	MaxImageSize int `mapstructure:"max_image_size" yaml:"max_image_size" json:"max_image_size"`
}

// GenerateConfig controls QR rendering.
type GenerateConfig struct {
	Size            int    `mapstructure:"size" yaml:"size" json:"size"`
	Padding         int    `mapstructure:"padding" yaml:"padding" json:"padding"`
	ErrorCorrection string `mapstructure:"error_correction" yaml:"error_correction" json:"error_correction"`
	Margin          int    `mapstructure:"margin" yaml:"margin" json:"margin"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	HistorySize     int             `mapstructure:"history_size" yaml:"history_size" json:"history_size"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	strategies := make([]string, 0, 5)
	for _, s := range scan.DefaultStrategies() {
		strategies = append(strategies, s.Name)
	}

	return Config{
		LogLevel: "info",
		Scan: ScanConfig{
			TryHarder:    true,
			Formats:      []string{"qr"},
			Strategies:   strategies,
			MaxImageSize: 4096,
		},
		Generate: GenerateConfig{
			Size:            generate.DefaultSize,
			Padding:         generate.DefaultPadding,
			ErrorCorrection: generate.DefaultErrorCorrection,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			HistorySize:     100,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 10000,
				MaxDataPerDayMB:   1024,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	for _, f := range c.Scan.Formats {
		if _, ok := barcode.ParseFormat(f); !ok {
			return fmt.Errorf("invalid scan format: %s", f)
		}
	}
	if _, unknown := scan.StrategiesByName(c.Scan.Strategies); len(unknown) > 0 {
		return fmt.Errorf("invalid scan strategies: %s", strings.Join(unknown, ", "))
	}
	if c.Scan.MaxImageSize < 0 {
		return fmt.Errorf("invalid scan max image size: %d (must not be negative)", c.Scan.MaxImageSize)
	}

	if c.Generate.Size <= 0 || c.Generate.Size > generate.MaxSize {
		return fmt.Errorf("invalid generate size: %d (must be between 1 and %d)", c.Generate.Size, generate.MaxSize)
	}
	if c.Generate.Padding < 0 {
		return fmt.Errorf("invalid generate padding: %d (must not be negative)", c.Generate.Padding)
	}
	validLevels := []string{"L", "M", "Q", "H"}
	if !slices.Contains(validLevels, strings.ToUpper(c.Generate.ErrorCorrection)) {
		return fmt.Errorf("invalid error correction level: %s (must be one of: %s)",
			c.Generate.ErrorCorrection, strings.Join(validLevels, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.HistorySize <= 0 {
		return fmt.Errorf("invalid history size: %d (must be positive)", c.Server.HistorySize)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ScanPipelineConfig converts the scan section into a pipeline configuration.
func (c *Config) ScanPipelineConfig() scan.Config {
	strategies, _ := scan.StrategiesByName(c.Scan.Strategies)
	formats := barcode.ParseFormats(c.Scan.Formats)
	if len(formats) == 0 {
		formats = []barcode.Format{barcode.FormatQR}
	}
	return scan.Config{
		Strategies: strategies,
		Hints:      barcode.Hints{Formats: formats, TryHarder: c.Scan.TryHarder},
	}
}

// GenerateOptions converts the generate section into rendering options.
func (c *Config) GenerateOptions() generate.Options {
	return generate.Options{
		Size:            c.Generate.Size,
		Padding:         c.Generate.Padding,
		ErrorCorrection: c.Generate.ErrorCorrection,
		Margin:          c.Generate.Margin,
	}
}

// BatchProcessingConfig converts the batch and output sections into a batch configuration.
func (c *Config) BatchProcessingConfig() *batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Workers = c.Batch.Workers
	cfg.Recursive = c.Batch.Recursive
	cfg.IncludePatterns = c.Batch.Include
	cfg.ExcludePatterns = c.Batch.Exclude
	cfg.ContinueOnError = c.Batch.ContinueOnError
	cfg.Constraints = c.ImageConstraints()
	if c.Output.Format != "" {
		cfg.Format = c.Output.Format
	}
	cfg.OutputFile = c.Output.File
	return cfg
}

// ImageConstraints returns the scan input limits. A zero MaxImageSize keeps
// the package defaults.
func (c *Config) ImageConstraints() utils.ImageConstraints {
	ic := utils.DefaultImageConstraints()
	if c.Scan.MaxImageSize > 0 {
		ic.MaxWidth = c.Scan.MaxImageSize
		ic.MaxHeight = c.Scan.MaxImageSize
	}
	return ic
}

// Timeout returns the server request timeout.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
