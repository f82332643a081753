package store

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrStoreClosed is returned when operations are attempted on a closed store
	ErrStoreClosed = fmt.Errorf("store: store is closed")
)

// Error constructors

// ErrOpen wraps a backend open or connect failure
func ErrOpen(err error) error {
	return fmt.Errorf("store: open failed: %w", err)
}

// ErrWrite wraps a backend write failure
func ErrWrite(err error) error {
	return fmt.Errorf("store: write failed: %w", err)
}

// ErrRead wraps a backend read failure
func ErrRead(err error) error {
	return fmt.Errorf("store: read failed: %w", err)
}

// ErrEncode wraps a record marshal or unmarshal failure
func ErrEncode(err error) error {
	return fmt.Errorf("store: encode failed: %w", err)
}

// ErrUnknownTable returns an error for a partition that was never created
func ErrUnknownTable(table string) error {
	return fmt.Errorf("store: unknown table: %s (call CreateTableStore first)", table)
}

// ErrUnknownIndex returns an error for an index not declared in the schema
func ErrUnknownIndex(table, index string) error {
	return fmt.Errorf("store: unknown index: %s on table %s", index, table)
}

// ErrInvalidIdentifier returns an error for a table or index name that cannot
// be used as a storage identifier
func ErrInvalidIdentifier(name string) error {
	return fmt.Errorf("store: invalid identifier: %q (must match ^[A-Za-z][A-Za-z0-9_-]*$)", name)
}

// ErrInvalidKeyPath returns an error for a schema with an empty key path
func ErrInvalidKeyPath(table string) error {
	return fmt.Errorf("store: invalid key path on table %s (must be non-empty)", table)
}

// ErrInvalidPath returns an error for an invalid database path
func ErrInvalidPath(path string) error {
	return fmt.Errorf("store: invalid path: %q (must be non-empty)", path)
}

// ErrInvalidMaxOpenConns returns an error for an invalid connection bound
func ErrInvalidMaxOpenConns(n int) error {
	return fmt.Errorf("store: invalid max open conns: %d (must be >= 1)", n)
}

// ErrInvalidAddr returns an error for an invalid Redis address
func ErrInvalidAddr(addr string) error {
	return fmt.Errorf("store: invalid addr: %q (must be non-empty)", addr)
}

// ErrInvalidDB returns an error for an invalid Redis database number
func ErrInvalidDB(db int) error {
	return fmt.Errorf("store: invalid db: %d (must be >= 0)", db)
}

// ErrInvalidPoolSize returns an error for an invalid pool size
func ErrInvalidPoolSize(size int) error {
	return fmt.Errorf("store: invalid pool size: %d (must be >= 1)", size)
}

// ErrInvalidDialTimeout returns an error for an invalid dial timeout
func ErrInvalidDialTimeout(timeout time.Duration) error {
	return fmt.Errorf("store: invalid dial timeout: %v (must be > 0)", timeout)
}
