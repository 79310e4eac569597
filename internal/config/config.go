// Package config defines the complete configuration for fleetlens, loadable
// from configuration files, environment variables and command-line flags.
package config

import (
	"fmt"

	"github.com/fleetlens/fleetlens/internal/recognize"
)

// Config is the root configuration for all commands (scan, batch, serve).
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Provider recognize.Config `mapstructure:"provider" yaml:"provider" json:"provider"`
	Output   OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	Batch    BatchConfig      `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// OutputConfig contains CLI output formatting settings.
type OutputConfig struct {
	Format              string `mapstructure:"format" yaml:"format" json:"format"`
	File                string `mapstructure:"file" yaml:"file" json:"file"`
	ConfidencePrecision int    `mapstructure:"confidence_precision" yaml:"confidence_precision" json:"confidence_precision"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int64  `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Provider: recognize.DefaultConfig(),
		Output: OutputConfig{
			Format:              "json",
			ConfidencePrecision: 3,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{
			MaxWorkers: 0, // one worker per image
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	switch c.Output.Format {
	case "", "json", "yaml", "text":
	default:
		return fmt.Errorf("invalid output format %q", c.Output.Format)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Batch.MaxWorkers < 0 {
		return fmt.Errorf("batch max_workers must not be negative, got %d", c.Batch.MaxWorkers)
	}
	if c.Provider.TimeoutSec < 0 {
		return fmt.Errorf("provider timeout_sec must not be negative, got %d", c.Provider.TimeoutSec)
	}
	return nil
}
