package store

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// SQLiteConfig holds configuration for the SQLite backend
type SQLiteConfig struct {
	// Path is the database file path; ":memory:" keeps everything in RAM
	// default: "masterdata.db"
	Path string `mapstructure:"path"`
	// MaxOpenConns bounds the connection pool. A single connection keeps
	// writers from tripping over SQLITE_BUSY.
	// default: 1
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// DefaultSQLiteConfig returns the default configuration for the SQLite backend
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "masterdata.db",
		MaxOpenConns: 1,
	}
}

// MergeDefaults fills zero values from the defaults. A nil receiver yields
// the full default configuration.
func (c *SQLiteConfig) MergeDefaults() *SQLiteConfig {
	def := DefaultSQLiteConfig()
	if c == nil {
		return def
	}
	if c.Path == "" {
		c.Path = def.Path
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = def.MaxOpenConns
	}
	return c
}

// Validate validates the configuration
func (c *SQLiteConfig) Validate() error {
	if c.Path == "" {
		return ErrInvalidPath(c.Path)
	}
	if c.MaxOpenConns < 1 {
		return ErrInvalidMaxOpenConns(c.MaxOpenConns)
	}
	return nil
}

// RedisConfig holds configuration for the Redis backend
type RedisConfig struct {
	// Addr is the host:port of the Redis server (required)
	Addr string `mapstructure:"addr"`
	// Username for Redis ACL authentication
	// default: "" (no auth)
	Username string `mapstructure:"username"`
	// Password for authentication
	// default: "" (no auth)
	Password string `mapstructure:"password"`
	// DB selects the logical database
	// default: 0
	DB int `mapstructure:"db"`
	// PoolSize is the maximum number of connections
	// default: 10
	PoolSize int `mapstructure:"pool_size"`
	// DialTimeout is the timeout for establishing connections
	// default: 5 * time.Second
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// KeyPrefix namespaces every key this store writes
	// default: "mdkit"
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DefaultRedisConfig returns the default configuration for the Redis backend
// Note: Addr has no default and must be explicitly set
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
		KeyPrefix:   "mdkit",
	}
}

// MergeDefaults fills zero values from the defaults
func (c *RedisConfig) MergeDefaults() *RedisConfig {
	def := DefaultRedisConfig()
	if c == nil {
		return def
	}
	if c.PoolSize == 0 {
		c.PoolSize = def.PoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = def.KeyPrefix
	}
	return c
}

// Validate validates the configuration
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return ErrInvalidAddr(c.Addr)
	}
	if c.DB < 0 {
		return ErrInvalidDB(c.DB)
	}
	if c.PoolSize < 1 {
		return ErrInvalidPoolSize(c.PoolSize)
	}
	if c.DialTimeout <= 0 {
		return ErrInvalidDialTimeout(c.DialTimeout)
	}
	return nil
}

// Options converts the configuration to go-redis client options
func (c *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:        c.Addr,
		Username:    c.Username,
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		DialTimeout: c.DialTimeout,
	}
}
