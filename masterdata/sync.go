package masterdata

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/routine"
	"github.com/helixdata/mdkit/store"
)

// SyncTable manually triggers the background sync routine for one table.
// The error reports only an unknown table or a closed Manager; a cycle
// that fails, or is skipped because another sync is in flight, is
// observable through SyncStatus, LastError, and events instead.
func (m *Manager) SyncTable(ctx context.Context, table string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if _, ok := m.definition(table); !ok {
		return ErrNoSuchTable(table)
	}
	m.syncOne(ctx, table)
	return nil
}

// SyncAllTables triggers a sync for every registered table concurrently
// and waits for the triggered cycles to finish. The single in-flight
// guard still applies, so of a simultaneous burst only the first cycle
// to acquire it runs; the rest pick up fresh data on their next tick.
func (m *Manager) SyncAllTables(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	r := routine.New(m.logger)
	for _, name := range m.tableNames() {
		name := name
		r.GoNamed("sync:"+name, func() {
			m.syncOne(ctx, name)
		})
	}
	r.Wait()
	return nil
}

// syncOne runs one sync cycle. At most one cycle runs at a time across
// all tables; a cycle that cannot acquire the guard skips without
// touching status or emitting events. Failures land in the table's
// status, its last error, and a sync:failed event, never in a return
// value, so a timer tick cannot break the schedule.
func (m *Manager) syncOne(ctx context.Context, table string) {
	if !m.syncing.CompareAndSwap(false, true) {
		m.logger.Debug("sync already in flight, skipping",
			zap.String("table", table),
		)
		return
	}
	defer m.syncing.Store(false)

	m.mu.Lock()
	def, ok := m.tables[table]
	if !ok {
		m.mu.Unlock()
		return
	}
	st := m.statuses[table]
	st.State = SyncSyncing
	st.LastAttempt = time.Now()
	m.statuses[table] = st
	m.mu.Unlock()

	log := m.logger.With(zap.String("table", table))
	log.Debug("sync cycle started")

	stored, hasStored := m.storedVersion(ctx, table)

	records, version, err := m.source.Fetch(ctx, def.Endpoint)
	if err != nil {
		m.finishSync(table, 0, err)
		log.Error("sync cycle failed", zap.Error(err))
		m.bus.Emit(EventSyncFailed, FetchErrorEvent{Table: table, Error: err.Error()})
		return
	}

	// A headerless source has an empty token and re-syncs every cycle.
	if hasStored && stored.Version != "" && stored.Version == version {
		m.finishSync(table, 0, nil)
		log.Debug("version unchanged, skipping write",
			zap.String("version", version),
		)
		return
	}

	if err := m.persist(ctx, table, records, version); err != nil {
		m.finishSync(table, 0, err)
		log.Error("sync cycle failed", zap.Error(err))
		m.bus.Emit(EventSyncFailed, FetchErrorEvent{Table: table, Error: err.Error()})
		return
	}

	m.memory.Set(table, records, cache.DefaultExpiration)
	m.finishSync(table, len(records), nil)
	log.Info("sync cycle completed",
		zap.Int("records", len(records)),
		zap.String("version", version),
	)
	m.bus.Emit(EventSyncCompleted, FetchEvent{
		Table:   table,
		Count:   len(records),
		Version: version,
	})
}

// storedVersion reads the table's version bookkeeping. A nil store or a
// failed read reports absent, which only costs the short-circuit.
func (m *Manager) storedVersion(ctx context.Context, table string) (store.VersionMetadata, bool) {
	if m.store == nil {
		return store.VersionMetadata{}, false
	}
	meta, ok, err := m.store.GetVersionMetadata(ctx, table)
	if err != nil {
		m.logger.Warn("version metadata unavailable",
			zap.String("table", table),
			zap.Error(err),
		)
		return store.VersionMetadata{}, false
	}
	return meta, ok
}

// finishSync records a cycle's outcome in the status and last-error maps.
func (m *Manager) finishSync(table string, updated int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.statuses[table]
	st.RecordsUpdated = updated
	if err != nil {
		st.State = SyncFailed
		st.Error = err.Error()
		m.lastErrs[table] = err.Error()
	} else {
		st.State = SyncSynced
		st.Error = ""
		m.lastErrs[table] = ""
	}
	m.statuses[table] = st
}
