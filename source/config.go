package source

import "time"

// HTTPConfig holds configuration for the HTTP source client
type HTTPConfig struct {
	// Timeout bounds each individual fetch attempt
	// default: 15 * time.Second
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of fetch attempts
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the backoff before the first retry; it doubles on each
	// further attempt
	// default: 1 * time.Second
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// Headers are added to every request, e.g. authorization
	Headers map[string]string `mapstructure:"headers"`
}

// DefaultHTTPConfig returns the default configuration for the HTTP client
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Timeout:    15 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// MergeDefaults fills zero values from the defaults. A nil receiver yields
// the full default configuration.
func (c *HTTPConfig) MergeDefaults() *HTTPConfig {
	def := DefaultHTTPConfig()
	if c == nil {
		return def
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = def.RetryDelay
	}
	return c
}

// Validate validates the configuration
func (c *HTTPConfig) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout(c.Timeout)
	}
	if c.MaxRetries < 1 {
		return ErrInvalidMaxRetries(c.MaxRetries)
	}
	if c.RetryDelay <= 0 {
		return ErrInvalidRetryDelay(c.RetryDelay)
	}
	return nil
}
