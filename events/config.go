package events

// Config holds configuration for the Notifier
type Config struct {
	// Source is stamped on every emission to identify the emitter
	// default: "masterdata"
	Source string `mapstructure:"source"`
	// HistorySize caps the emission history ring; the oldest entry is
	// dropped once the ring is full
	// default: 100
	HistorySize int `mapstructure:"history_size"`
	// WatchBuffer is the initial capacity of a watch channel's buffer
	// default: 16
	WatchBuffer int `mapstructure:"watch_buffer"`
}

// DefaultConfig returns the default configuration for the Notifier
func DefaultConfig() *Config {
	return &Config{
		Source:      "masterdata",
		HistorySize: 100,
		WatchBuffer: 16,
	}
}

// MergeDefaults fills zero-valued fields from the default configuration
func (c *Config) MergeDefaults() {
	d := DefaultConfig()
	if c.Source == "" {
		c.Source = d.Source
	}
	if c.HistorySize == 0 {
		c.HistorySize = d.HistorySize
	}
	if c.WatchBuffer == 0 {
		c.WatchBuffer = d.WatchBuffer
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HistorySize < 1 {
		return ErrInvalidHistorySize(c.HistorySize)
	}
	if c.WatchBuffer < 1 {
		return ErrInvalidWatchBuffer(c.WatchBuffer)
	}
	return nil
}
