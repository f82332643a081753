// Package masterdata orchestrates the three tiers reference data is read
// through: an in-process memory cache, an optional persistent store, and
// the network source of truth. Reads prefer the closest tier and promote
// hits upward; background syncs keep the lower tiers fresh, using version
// tokens so unchanged datasets are never rewritten.
//
// The masterdata package follows go-kit conventions:
// - Interface-driven design for testability
// - Uses logger.Logger interface for unified logging
// - Configuration with validation and defaults
// - Structured error handling
//
// A Manager is an explicit instance: construct one at startup and pass it
// to consumers. Read methods are never blocked by a running sync; a read
// during a sync may observe pre- or post-sync data.
package masterdata

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/events"
	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/scheduler"
	"github.com/helixdata/mdkit/source"
	"github.com/helixdata/mdkit/store"
)

// Manager is the facade over the three data tiers. All methods are safe
// for concurrent use.
type Manager struct {
	logger logger.Logger
	cfg    *Config

	store  store.Store // nil disables the persistent tier
	source source.Source
	bus    events.Notifier
	ownBus bool

	memory *cache.Cache
	sched  scheduler.Scheduler

	mu       sync.RWMutex
	tables   map[string]TableDefinition
	statuses map[string]SyncStatus
	lastErrs map[string]string
	entries  map[string]scheduler.EntryID

	// syncing is the single in-flight guard shared by every table. A cycle
	// that cannot acquire it skips; it is never queued.
	syncing atomic.Bool

	closed atomic.Bool
}

// New creates a Manager. st may be nil, which disables the persistent
// tier; bus may be nil, in which case the Manager owns a notifier built
// from cfg.Events and closes it on Close.
func New(log logger.Logger, cfg *Config, st store.Store, src source.Source, bus events.Notifier) (*Manager, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ownBus := false
	if bus == nil {
		b, err := events.New(log, cfg.Events)
		if err != nil {
			return nil, err
		}
		bus = b
		ownBus = true
	}

	ttl := cfg.MemoryTTL
	sweep := cfg.SweepInterval
	if ttl == 0 {
		ttl = cache.NoExpiration
		sweep = 0
	}

	return &Manager{
		logger:   log,
		cfg:      cfg,
		store:    st,
		source:   src,
		bus:      bus,
		ownBus:   ownBus,
		memory:   cache.New(ttl, sweep),
		sched:    scheduler.New(log),
		tables:   make(map[string]TableDefinition),
		statuses: make(map[string]SyncStatus),
		lastErrs: make(map[string]string),
		entries:  make(map[string]scheduler.EntryID),
	}, nil
}

// Start begins background sync scheduling. Tables registered before Start
// are picked up on their first tick after it.
func (m *Manager) Start() {
	m.sched.Start()
}

// Close stops background syncing, waits for a running scheduled cycle,
// and releases what the Manager owns. An injected store or notifier is
// not closed; its lifecycle belongs to the caller.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.sched.Close()
	if m.ownBus {
		m.bus.Close()
	}
	m.logger.Debug("master data manager closed")
}

// Events exposes the notifier for subscriptions.
func (m *Manager) Events() events.Notifier {
	return m.bus
}

// RegisterTable validates def, provisions its store partition, and
// schedules background sync when def.SyncInterval > 0. Registering an
// already registered name fails with ErrDuplicateTable and leaves the
// first registration untouched.
func (m *Manager) RegisterTable(ctx context.Context, def TableDefinition) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if err := def.Validate(); err != nil {
		return err
	}
	def = def.withDefaults()

	m.mu.Lock()
	if _, dup := m.tables[def.Name]; dup {
		m.mu.Unlock()
		return ErrTableExists(def.Name)
	}
	m.tables[def.Name] = def
	m.statuses[def.Name] = SyncStatus{State: SyncPending}
	m.mu.Unlock()

	// Partition provisioning is best effort: without persistence the table
	// still serves reads from memory and network.
	if m.store != nil {
		if err := m.store.CreateTableStore(ctx, def.schema()); err != nil {
			m.logger.Warn("store partition unavailable",
				zap.String("table", def.Name),
				zap.Error(err),
			)
		}
	}

	if def.SyncInterval > 0 {
		name := def.Name
		task := scheduler.NewTask("sync:"+name, func(ctx context.Context) error {
			m.syncOne(ctx, name)
			return nil
		})
		id, err := m.sched.Every(def.SyncInterval, task)
		if err != nil {
			m.logger.Warn("background sync not scheduled",
				zap.String("table", name),
				zap.Error(err),
			)
		} else {
			m.mu.Lock()
			m.entries[name] = id
			m.mu.Unlock()
		}
	}

	m.logger.Info("table registered",
		zap.String("table", def.Name),
		zap.String("endpoint", def.Endpoint),
		zap.Duration("sync_interval", def.SyncInterval),
	)
	m.bus.Emit(EventTableRegistered, TableEvent{
		Table:       def.Name,
		DisplayName: def.DisplayName,
	})
	return nil
}

// CacheStats is a point-in-time view of cache occupancy and sync state.
type CacheStats struct {
	MemoryCacheSize  int                   `json:"memoryCacheSize"`
	RegisteredTables []string              `json:"registeredTables"`
	SyncStatus       map[string]SyncStatus `json:"syncStatus"`
}

// CacheStats reports the number of memory entries, the registered table
// names in sorted order, and a copy of every sync status.
func (m *Manager) CacheStats() CacheStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make(map[string]SyncStatus, len(m.statuses))
	for name, st := range m.statuses {
		statuses[name] = st
	}

	return CacheStats{
		MemoryCacheSize:  m.memory.ItemCount(),
		RegisteredTables: names,
		SyncStatus:       statuses,
	}
}

// SyncStatus returns a snapshot of one table's sync state.
func (m *Manager) SyncStatus(table string) (SyncStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.statuses[table]
	if !ok {
		return SyncStatus{}, ErrNoSuchTable(table)
	}
	return st, nil
}

// SyncStatuses returns a snapshot of every table's sync state.
func (m *Manager) SyncStatuses() map[string]SyncStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]SyncStatus, len(m.statuses))
	for name, st := range m.statuses {
		out[name] = st
	}
	return out
}

// LastError returns the most recent absorbed fetch or sync error message
// for the table, empty when the last attempt succeeded.
func (m *Manager) LastError(table string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.tables[table]; !ok {
		return "", ErrNoSuchTable(table)
	}
	return m.lastErrs[table], nil
}

func (m *Manager) definition(table string) (TableDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.tables[table]
	return def, ok
}

func (m *Manager) tableNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
