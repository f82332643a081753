package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/record"
)

// sqliteStore persists each partition as its own table: pos keeps the saved
// order, key is the primary key, doc holds the record JSON, and every
// declared index gets an extracted column plus a SQL index. Version metadata
// for all partitions shares the mdkit_versions table.
type sqliteStore struct {
	logger logger.Logger
	db     *sql.DB

	mu      sync.RWMutex
	schemas map[string]Schema

	closed atomic.Bool
}

// NewSQLite opens a SQLite-backed store at cfg.Path. The file and the
// version table are created on first use; ":memory:" gives a store that
// lives only for the process.
func NewSQLite(log logger.Logger, cfg *SQLiteConfig) (Store, error) {
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, ErrOpen(err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ErrOpen(err)
	}

	const versionsDDL = `CREATE TABLE IF NOT EXISTS mdkit_versions (
		table_name   TEXT PRIMARY KEY,
		version      TEXT NOT NULL,
		ts           INTEGER NOT NULL,
		last_sync    INTEGER NOT NULL,
		record_count INTEGER NOT NULL,
		sync_status  TEXT NOT NULL
	)`
	if _, err := db.Exec(versionsDDL); err != nil {
		db.Close()
		return nil, ErrOpen(err)
	}

	log.Debug("sqlite store opened", zap.String("path", cfg.Path))
	return &sqliteStore{
		logger:  log,
		db:      db,
		schemas: make(map[string]Schema),
	}, nil
}

func partitionTable(table string) string {
	return `"mdt_` + table + `"`
}

func indexColumn(index string) string {
	return `"ix_` + index + `"`
}

func (s *sqliteStore) schema(table string) (Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schemas[table]
	return sc, ok
}

func (s *sqliteStore) CreateTableStore(ctx context.Context, schema Schema) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		"mdt_"+schema.Table,
	).Scan(&exists)
	if err != nil {
		return ErrRead(err)
	}

	// An existing partition keeps its layout; redeclared indexes are not
	// applied retroactively.
	if exists == 0 {
		var ddl strings.Builder
		ddl.WriteString(`CREATE TABLE ` + partitionTable(schema.Table) + ` (`)
		ddl.WriteString(`pos INTEGER NOT NULL, key TEXT PRIMARY KEY, doc TEXT NOT NULL`)
		for _, ix := range schema.Indexes {
			ddl.WriteString(`, ` + indexColumn(ix.Name) + ` TEXT`)
		}
		ddl.WriteString(`)`)
		if _, err := s.db.ExecContext(ctx, ddl.String()); err != nil {
			return ErrWrite(err)
		}

		for _, ix := range schema.Indexes {
			stmt := `CREATE `
			if ix.Unique {
				stmt += `UNIQUE `
			}
			stmt += `INDEX "mdx_` + schema.Table + `_` + ix.Name + `" ON ` +
				partitionTable(schema.Table) + ` (` + indexColumn(ix.Name) + `)`
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return ErrWrite(err)
			}
		}
		s.logger.Debug("partition created",
			zap.String("table", schema.Table),
			zap.Int("indexes", len(schema.Indexes)),
		)
	}

	s.schemas[schema.Table] = schema
	return nil
}

func (s *sqliteStore) Save(ctx context.Context, table string, records []record.Record) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	schema, ok := s.schema(table)
	if !ok {
		return ErrUnknownTable(table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ErrWrite(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+partitionTable(table)); err != nil {
		return ErrWrite(err)
	}

	var insert strings.Builder
	insert.WriteString(`INSERT OR REPLACE INTO ` + partitionTable(table) + ` (pos, key, doc`)
	for _, ix := range schema.Indexes {
		insert.WriteString(`, ` + indexColumn(ix.Name))
	}
	insert.WriteString(`) VALUES (?, ?, ?` + strings.Repeat(`, ?`, len(schema.Indexes)) + `)`)

	stmt, err := tx.PrepareContext(ctx, insert.String())
	if err != nil {
		return ErrWrite(err)
	}
	defer stmt.Close()

	pos := 0
	for _, r := range records {
		key, ok := r.Key(schema.KeyPath)
		if !ok {
			s.logger.Warn("record without key field skipped",
				zap.String("table", table),
				zap.String("key_path", schema.KeyPath),
			)
			continue
		}
		doc, err := json.Marshal(r)
		if err != nil {
			return ErrEncode(err)
		}
		args := make([]any, 0, 3+len(schema.Indexes))
		args = append(args, pos, key, string(doc))
		for _, ix := range schema.Indexes {
			args = append(args, indexValue(r, ix.KeyPath))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return ErrWrite(err)
		}
		pos++
	}

	if err := tx.Commit(); err != nil {
		return ErrWrite(err)
	}
	return nil
}

// indexValue extracts the canonical string form of an indexed field. Missing
// or nil fields store NULL, which unique SQL indexes ignore.
func indexValue(r record.Record, keyPath string) any {
	v, ok := r.Value(keyPath)
	if !ok || v == nil {
		return nil
	}
	return record.String(v)
}

func (s *sqliteStore) GetAll(ctx context.Context, table string) ([]record.Record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if _, ok := s.schema(table); !ok {
		return nil, ErrUnknownTable(table)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM `+partitionTable(table)+` ORDER BY pos`)
	if err != nil {
		return nil, ErrRead(err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *sqliteStore) GetByKey(ctx context.Context, table, key string) (record.Record, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	if _, ok := s.schema(table); !ok {
		return nil, false, ErrUnknownTable(table)
	}

	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM `+partitionTable(table)+` WHERE key = ?`, key,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrRead(err)
	}

	var r record.Record
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, false, ErrEncode(err)
	}
	return r, true, nil
}

func (s *sqliteStore) QueryByIndex(ctx context.Context, table, index string, value any) ([]record.Record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	schema, ok := s.schema(table)
	if !ok {
		return nil, ErrUnknownTable(table)
	}
	if !schemaHasIndex(schema, index) {
		return nil, ErrUnknownIndex(table, index)
	}

	var (
		rows *sql.Rows
		err  error
	)
	if value == nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT doc FROM `+partitionTable(table)+` WHERE `+indexColumn(index)+` IS NULL ORDER BY pos`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT doc FROM `+partitionTable(table)+` WHERE `+indexColumn(index)+` = ? ORDER BY pos`,
			record.String(value))
	}
	if err != nil {
		return nil, ErrRead(err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func schemaHasIndex(schema Schema, index string) bool {
	for _, ix := range schema.Indexes {
		if ix.Name == index {
			return true
		}
	}
	return false
}

func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	out := make([]record.Record, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, ErrRead(err)
		}
		var r record.Record
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, ErrEncode(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrRead(err)
	}
	return out, nil
}

func (s *sqliteStore) SaveVersionMetadata(ctx context.Context, meta VersionMetadata) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mdkit_versions (table_name, version, ts, last_sync, record_count, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(table_name) DO UPDATE SET
		   version = excluded.version,
		   ts = excluded.ts,
		   last_sync = excluded.last_sync,
		   record_count = excluded.record_count,
		   sync_status = excluded.sync_status`,
		meta.TableName, meta.Version,
		milliFromTime(meta.Timestamp), milliFromTime(meta.LastSyncTime),
		meta.RecordCount, meta.SyncStatus,
	)
	if err != nil {
		return ErrWrite(err)
	}
	return nil
}

func (s *sqliteStore) GetVersionMetadata(ctx context.Context, table string) (VersionMetadata, bool, error) {
	if s.closed.Load() {
		return VersionMetadata{}, false, ErrStoreClosed
	}

	var (
		meta         VersionMetadata
		ts, lastSync int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, ts, last_sync, record_count, sync_status FROM mdkit_versions WHERE table_name = ?`,
		table,
	).Scan(&meta.Version, &ts, &lastSync, &meta.RecordCount, &meta.SyncStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return VersionMetadata{}, false, nil
	}
	if err != nil {
		return VersionMetadata{}, false, ErrRead(err)
	}

	meta.TableName = table
	meta.Timestamp = timeFromMilli(ts)
	meta.LastSyncTime = timeFromMilli(lastSync)
	return meta, true, nil
}

func (s *sqliteStore) DeleteTable(ctx context.Context, table string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, ok := s.schema(table); !ok {
		return ErrUnknownTable(table)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+partitionTable(table)); err != nil {
		return ErrWrite(err)
	}
	return nil
}

// Millisecond columns use 0 for the zero time so metadata round-trips
// without driver-specific time handling.
func milliFromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeFromMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s *sqliteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*sqliteStore)(nil)
