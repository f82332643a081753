package masterdata

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/query"
	"github.com/helixdata/mdkit/record"
	"github.com/helixdata/mdkit/store"
)

// GetData returns the table's records, reading through memory, store, and
// network in that order. A cached empty slice is not authoritative; only a
// non-empty memory entry short-circuits, so an empty table is re-checked
// against the lower tiers on every read. A network failure is absorbed: it
// becomes the table's last error plus a fetch:error event, and the call
// returns an empty slice with a nil error.
func (m *Manager) GetData(ctx context.Context, table string) ([]record.Record, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	def, ok := m.definition(table)
	if !ok {
		return nil, ErrNoSuchTable(table)
	}

	if records, ok := m.cachedRecords(table); ok && len(records) > 0 {
		return records, nil
	}

	if m.store != nil {
		records, err := m.store.GetAll(ctx, table)
		if err != nil {
			m.logger.Warn("store read failed, falling through to source",
				zap.String("table", table),
				zap.Error(err),
			)
		} else if len(records) > 0 {
			m.memory.Set(table, records, cache.DefaultExpiration)
			return records, nil
		}
	}

	records, version, err := m.source.Fetch(ctx, def.Endpoint)
	if err != nil {
		m.setLastError(table, err)
		m.logger.Error("fetch failed",
			zap.String("table", table),
			zap.String("endpoint", def.Endpoint),
			zap.Error(err),
		)
		m.bus.Emit(EventFetchError, FetchErrorEvent{Table: table, Error: err.Error()})
		return []record.Record{}, nil
	}

	// The read already has its data; a failed cache write only costs the
	// next reader a refetch.
	if err := m.persist(ctx, table, records, version); err != nil {
		m.logger.Warn("persisting fetched records failed",
			zap.String("table", table),
			zap.Error(err),
		)
	}
	m.memory.Set(table, records, cache.DefaultExpiration)
	m.clearLastError(table)
	m.bus.Emit(EventDataFetched, FetchEvent{
		Table:   table,
		Count:   len(records),
		Version: version,
	})
	return records, nil
}

// GetDataByKey looks one record up by primary key without ever fetching:
// the store's key lookup first, then a linear scan of the memory entry.
// The bool reports whether the record was found.
func (m *Manager) GetDataByKey(ctx context.Context, table, key string) (record.Record, bool, error) {
	if m.closed.Load() {
		return nil, false, ErrManagerClosed
	}
	def, ok := m.definition(table)
	if !ok {
		return nil, false, ErrNoSuchTable(table)
	}

	if m.store != nil {
		rec, found, err := m.store.GetByKey(ctx, table, key)
		if err != nil {
			m.logger.Warn("store lookup failed, falling back to memory",
				zap.String("table", table),
				zap.String("key", key),
				zap.Error(err),
			)
		} else if found {
			return rec, true, nil
		}
	}

	if records, ok := m.cachedRecords(table); ok {
		for _, rec := range records {
			if k, ok := rec.Key(def.KeyPath); ok && k == key {
				return rec, true, nil
			}
		}
	}
	return nil, false, nil
}

// Query validates opts, loads the table through the cache tiers, and runs
// the query engine over the result. Invalid options fail with an
// InvalidQueryError carrying every validation message.
func (m *Manager) Query(ctx context.Context, table string, opts query.Options) (query.Result, error) {
	if m.closed.Load() {
		return query.Result{}, ErrManagerClosed
	}
	if v := query.Validate(opts); !v.Valid {
		return query.Result{}, &InvalidQueryError{Messages: v.Errors}
	}

	records, err := m.GetData(ctx, table)
	if err != nil {
		return query.Result{}, err
	}

	res := query.Execute(records, opts)
	m.logger.Debug("query executed",
		zap.String("table", table),
		zap.Int("filtered", res.FilteredCount),
		zap.Duration("duration", res.ExecutionTime),
	)
	m.bus.Emit(EventQueryExecuted, QueryEvent{
		Table:         table,
		FilteredCount: res.FilteredCount,
		Duration:      res.ExecutionTime,
	})
	return res, nil
}

// ClearAllCaches drops every memory entry and every store partition's
// records, and resets the stored version tokens so the next sync cannot
// short-circuit against an emptied partition. Registrations, schedules,
// and sync statuses survive; the next read repopulates from the network.
func (m *Manager) ClearAllCaches(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	m.memory.Flush()

	names := m.tableNames()
	if m.store != nil {
		for _, name := range names {
			if err := m.store.DeleteTable(ctx, name); err != nil {
				m.logger.Warn("clearing store partition failed",
					zap.String("table", name),
					zap.Error(err),
				)
				continue
			}
			meta := store.VersionMetadata{
				TableName:   name,
				Timestamp:   time.Now(),
				RecordCount: 0,
				SyncStatus:  string(SyncPending),
			}
			if err := m.store.SaveVersionMetadata(ctx, meta); err != nil {
				m.logger.Warn("resetting version metadata failed",
					zap.String("table", name),
					zap.Error(err),
				)
			}
		}
	}

	m.logger.Info("all caches cleared", zap.Int("tables", len(names)))
	m.bus.Emit(EventCacheCleared, CacheClearedEvent{Tables: names})
	return nil
}

// cachedRecords returns the memory entry for table. The bool reports
// presence; the slice may be present and empty.
func (m *Manager) cachedRecords(table string) ([]record.Record, bool) {
	v, found := m.memory.Get(table)
	if !found {
		return nil, false
	}
	records, ok := v.([]record.Record)
	return records, ok
}

// persist writes a full replacement of the table's records and its
// version metadata. A nil store is a no-op.
func (m *Manager) persist(ctx context.Context, table string, records []record.Record, version string) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, table, records); err != nil {
		return err
	}
	now := time.Now()
	return m.store.SaveVersionMetadata(ctx, store.VersionMetadata{
		TableName:    table,
		Version:      version,
		Timestamp:    now,
		LastSyncTime: now,
		RecordCount:  len(records),
		SyncStatus:   string(SyncSynced),
	})
}

func (m *Manager) setLastError(table string, err error) {
	m.mu.Lock()
	m.lastErrs[table] = err.Error()
	m.mu.Unlock()
}

func (m *Manager) clearLastError(table string) {
	m.mu.Lock()
	m.lastErrs[table] = ""
	m.mu.Unlock()
}
