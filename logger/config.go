package logger

import "slices"

var (
	validLevels    = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	validEncodings = []string{"json", "console"}
)

// Config is the configuration for the logger
type Config struct {
	// Level, one of debug, info, warn, error, dpanic, panic, fatal
	// default: "info"
	Level string `mapstructure:"level"`
	// Encoding, json or console
	// default: "json"
	Encoding string `mapstructure:"encoding"`
	// Output paths
	// default: []string{"stdout"}
	OutputPaths []string `mapstructure:"output_paths"`
	// Error output paths
	// default: []string{"stderr"}
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// DefaultConfig returns the default configuration for the logger
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// MergeDefaults fills empty fields from the default configuration
func (c *Config) MergeDefaults() {
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

// Validate validates the configuration for the logger
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, c.Level) {
		return ErrInvalidLevel(c.Level)
	}
	if !slices.Contains(validEncodings, c.Encoding) {
		return ErrInvalidEncoding(c.Encoding)
	}
	return nil
}
