package logger

import (
	"fmt"
	"strings"

	corelogger "github.com/kilianp07/induction/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// Config controls the zerolog output of the CLI and the pipeline.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
	// Format is "json" or "console". Empty selects console when APP_ENV=dev.
	Format string `json:"format"`
	// Output is "stderr", "stdout" or "file".
	Output string `json:"output"`
	// File configures the rotated log file used when Output is "file".
	File FileConfig `json:"file"`
}

// FileConfig sets the path and rotation policy of the log file.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	if c.File.MaxSizeMB == 0 {
		c.File.MaxSizeMB = 50
	}
	if c.File.MaxBackups == 0 {
		c.File.MaxBackups = 7
	}
}

// Validate checks the logging configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Format)
	}
	switch strings.ToLower(c.Output) {
	case "", "stderr", "stdout":
	case "file":
		if strings.TrimSpace(c.File.Path) == "" {
			return fmt.Errorf("log.file.path is required when log.output is file")
		}
	default:
		return fmt.Errorf("log.output: unknown output %q", c.Output)
	}
	if c.File.MaxSizeMB < 0 || c.File.MaxBackups < 0 || c.File.MaxAgeDays < 0 {
		return fmt.Errorf("log.file: rotation limits must not be negative")
	}
	return nil
}

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
