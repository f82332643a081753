// Package store provides the persistent tier of the master-data cache: a
// key-scoped, versioned per-table store with secondary indexes, durable
// across process restarts.
//
// Two backends are available. The SQLite backend (modernc.org/sqlite, pure
// Go) is the default and needs no external infrastructure; the Redis backend
// suits processes that already share a Redis and want a warm cache across
// restarts of many replicas. Both serve the same Store interface, and the
// orchestrator treats every store error as a cache miss, so a broken or
// absent store degrades reads instead of failing them.
package store

import (
	"context"
	"regexp"
	"time"

	"github.com/helixdata/mdkit/record"
)

// Table and index names become storage identifiers (SQL table and column
// names, Redis key segments), so they are restricted to a safe shape.
var identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Index declares one secondary lookup over a table partition. KeyPath is
// resolved against each record with dot-path traversal; Unique enforces at
// most one record per value.
type Index struct {
	Name    string `json:"name" mapstructure:"name"`
	KeyPath string `json:"keyPath" mapstructure:"key_path"`
	Unique  bool   `json:"unique" mapstructure:"unique"`
}

// Schema describes a table partition: the primary key path and the declared
// secondary indexes. Index changes to an already-created partition are not
// applied retroactively.
type Schema struct {
	Table   string  `json:"table"`
	KeyPath string  `json:"keyPath"`
	Indexes []Index `json:"indexes,omitempty"`
}

// Validate checks that the schema can be materialized by a backend
func (s Schema) Validate() error {
	if !identRe.MatchString(s.Table) {
		return ErrInvalidIdentifier(s.Table)
	}
	if s.KeyPath == "" {
		return ErrInvalidKeyPath(s.Table)
	}
	for _, ix := range s.Indexes {
		if !identRe.MatchString(ix.Name) {
			return ErrInvalidIdentifier(ix.Name)
		}
		if ix.KeyPath == "" {
			return ErrInvalidKeyPath(s.Table)
		}
	}
	return nil
}

// VersionMetadata is the per-table sync bookkeeping written on every
// successful fetch-and-save. Version is an opaque token compared by equality
// only. It lives in its own partition and survives DeleteTable.
type VersionMetadata struct {
	TableName    string    `json:"tableName"`
	Version      string    `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
	LastSyncTime time.Time `json:"lastSyncTime"`
	RecordCount  int       `json:"recordCount"`
	SyncStatus   string    `json:"syncStatus"`
}

// Store is a per-table record store with indexed lookups and version
// bookkeeping. Save replaces a partition's contents wholesale; GetAll
// returns records in saved order. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateTableStore ensures the partition for schema exists. Idempotent;
	// an existing partition is left untouched.
	CreateTableStore(ctx context.Context, schema Schema) error

	// Save replaces the partition's contents with records, preserving their
	// order. Records without a value at the schema's key path are skipped.
	Save(ctx context.Context, table string, records []record.Record) error

	// GetAll returns the partition's records in saved order.
	GetAll(ctx context.Context, table string) ([]record.Record, error)

	// GetByKey looks up one record by its primary key. The second return is
	// false when the key is absent.
	GetByKey(ctx context.Context, table, key string) (record.Record, bool, error)

	// QueryByIndex returns the records whose indexed field equals value.
	QueryByIndex(ctx context.Context, table, index string, value any) ([]record.Record, error)

	// SaveVersionMetadata overwrites the table's version bookkeeping.
	SaveVersionMetadata(ctx context.Context, meta VersionMetadata) error

	// GetVersionMetadata returns the table's version bookkeeping. The second
	// return is false when none has been written.
	GetVersionMetadata(ctx context.Context, table string) (VersionMetadata, bool, error)

	// DeleteTable clears the partition's records. The partition itself and
	// its version metadata remain.
	DeleteTable(ctx context.Context, table string) error

	Close() error
}
