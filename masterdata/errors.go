package masterdata

import (
	"fmt"
	"strings"
	"time"
)

var (
	// ErrManagerClosed is returned by every operation after Close.
	ErrManagerClosed = fmt.Errorf("masterdata: manager is closed")

	// ErrNilSource is returned by New when no source is given.
	ErrNilSource = fmt.Errorf("masterdata: source is required")

	// ErrDuplicateTable is wrapped by registration of an already
	// registered name.
	ErrDuplicateTable = fmt.Errorf("masterdata: table already registered")

	// ErrUnknownTable is wrapped by operations on an unregistered name.
	ErrUnknownTable = fmt.Errorf("masterdata: table not registered")

	// ErrInvalidQuery is the sentinel unwrapped from InvalidQueryError.
	ErrInvalidQuery = fmt.Errorf("masterdata: invalid query")

	// ErrTableNameRequired is returned for a definition without a name.
	ErrTableNameRequired = fmt.Errorf("masterdata: table name is required")

	// ErrEndpointRequired is returned for a definition without an endpoint.
	ErrEndpointRequired = fmt.Errorf("masterdata: endpoint is required")

	// ErrKeyPathRequired is returned for a definition without a key path.
	ErrKeyPathRequired = fmt.Errorf("masterdata: key path is required")
)

// ErrTableExists wraps ErrDuplicateTable with the offending name
func ErrTableExists(table string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateTable, table)
}

// ErrNoSuchTable wraps ErrUnknownTable with the offending name
func ErrNoSuchTable(table string) error {
	return fmt.Errorf("%w: %s", ErrUnknownTable, table)
}

// ErrInvalidTableName creates an error for a name the store cannot partition
func ErrInvalidTableName(name string) error {
	return fmt.Errorf("masterdata: invalid table name %q", name)
}

// ErrInvalidEndpoint creates an error for a non-absolute endpoint URL
func ErrInvalidEndpoint(endpoint string) error {
	return fmt.Errorf("masterdata: endpoint %q is not an absolute http(s) url", endpoint)
}

// ErrInvalidSyncInterval creates an error for a sub-second sync interval
func ErrInvalidSyncInterval(interval time.Duration) error {
	return fmt.Errorf("masterdata: sync interval must be zero or at least 1s, got %s", interval)
}

// ErrInvalidIndexName creates an error for an index name the store cannot use
func ErrInvalidIndexName(name string) error {
	return fmt.Errorf("masterdata: invalid index name %q", name)
}

// ErrIndexKeyPathRequired creates an error for an index without a key path
func ErrIndexKeyPathRequired(index string) error {
	return fmt.Errorf("masterdata: index %q: key path is required", index)
}

// ErrDuplicateIndex creates an error for a repeated index name
func ErrDuplicateIndex(name string) error {
	return fmt.Errorf("masterdata: duplicate index %q", name)
}

// ErrInvalidMemoryTTL creates an error for a negative memory TTL
func ErrInvalidMemoryTTL(ttl time.Duration) error {
	return fmt.Errorf("masterdata: memory ttl must not be negative, got %s", ttl)
}

// ErrInvalidSweepInterval creates an error for a negative sweep interval
func ErrInvalidSweepInterval(interval time.Duration) error {
	return fmt.Errorf("masterdata: sweep interval must not be negative, got %s", interval)
}

// InvalidQueryError carries the individual validation messages for a
// rejected query. errors.Is(err, ErrInvalidQuery) holds for it.
type InvalidQueryError struct {
	Messages []string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("masterdata: invalid query: %s", strings.Join(e.Messages, "; "))
}

func (e *InvalidQueryError) Unwrap() error {
	return ErrInvalidQuery
}
