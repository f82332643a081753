package masterdata

import (
	"time"

	"github.com/helixdata/mdkit/events"
)

// Config holds configuration for the Manager
type Config struct {
	// MemoryTTL bounds how long a table's records stay in the memory tier
	// before a read falls through to the store again. Zero keeps entries
	// until they are replaced or cleared.
	// default: 0
	MemoryTTL time.Duration `mapstructure:"memory_ttl"`

	// SweepInterval is how often expired memory entries are collected.
	// Only used when MemoryTTL > 0.
	// default: 1m
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// Events configures the notifier the Manager builds when none is
	// injected.
	Events *events.Config `mapstructure:"events"`
}

// DefaultConfig returns the default configuration for the Manager
func DefaultConfig() *Config {
	return &Config{
		MemoryTTL:     0,
		SweepInterval: time.Minute,
		Events:        events.DefaultConfig(),
	}
}

// MergeDefaults fills zero-valued fields from the default configuration.
// A nil receiver yields the full default configuration.
func (c *Config) MergeDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	d := DefaultConfig()
	out := *c
	if out.SweepInterval == 0 {
		out.SweepInterval = d.SweepInterval
	}
	if out.Events == nil {
		out.Events = d.Events
	}
	return &out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MemoryTTL < 0 {
		return ErrInvalidMemoryTTL(c.MemoryTTL)
	}
	if c.SweepInterval < 0 {
		return ErrInvalidSweepInterval(c.SweepInterval)
	}
	return nil
}
