package logger

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validLevels    = []string{"debug", "info", "warn", "error"}
	validEncodings = []string{"json", "console"}
)

// Config is the configuration for the logger.
type Config struct {
	// Level, one of debug, info, warn, error
	// default: "info"
	Level string `yaml:"level" env:"LEVEL"`
	// Encoding, json or console
	// default: "json"
	Encoding string `yaml:"encoding" env:"ENCODING"`
	// default: []string{"stderr"}
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS" envSeparator:","`
	// default: []string{"stderr"}
	ErrorOutputPaths []string `yaml:"error_output_paths" env:"ERROR_OUTPUT_PATHS" envSeparator:","`
}

// DefaultConfig returns the default logger configuration. Logs go to stderr
// so CLI output on stdout stays machine readable.
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// merge fills empty fields from the defaults.
func (c *Config) merge() {
	d := DefaultConfig()
	if c.Level == "" {
		c.Level = d.Level
	}
	if c.Encoding == "" {
		c.Encoding = d.Encoding
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = d.OutputPaths
	}
	if len(c.ErrorOutputPaths) == 0 {
		c.ErrorOutputPaths = d.ErrorOutputPaths
	}
}

// Validate validates the configuration for the logger.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, c.Level) {
		return ErrInvalidLevel(c.Level, fmt.Errorf("must be one of: %s", strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validEncodings, c.Encoding) {
		return ErrInvalidEncoding(c.Encoding)
	}
	return nil
}
