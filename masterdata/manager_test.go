package masterdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/helixdata/mdkit/events"
	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/query"
	"github.com/helixdata/mdkit/record"
	"github.com/helixdata/mdkit/source"
	"github.com/helixdata/mdkit/store"
)

// ============ Test Setup ============

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	return logger.NewNop()
}

// fakeSource serves a configurable record set. started receives one send
// per fetch begin and gate blocks the fetch until closed, when set.
type fakeSource struct {
	mu      sync.Mutex
	records []record.Record
	version string
	err     error
	started chan struct{}
	gate    chan struct{}
	fetches atomic.Int32
}

func newFakeSource(records []record.Record, version string) *fakeSource {
	return &fakeSource{records: records, version: version}
}

func (f *fakeSource) set(records []record.Record, version string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.version = version
	f.err = err
}

func (f *fakeSource) Fetch(ctx context.Context, _ string) ([]record.Record, string, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	records, version, err := f.records, f.version, f.err
	started, gate := f.started, f.gate
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-gate:
		}
	}
	if err != nil {
		return nil, "", err
	}
	out := make([]record.Record, len(records))
	copy(out, records)
	return out, version, nil
}

var _ source.Source = (*fakeSource)(nil)

// countingStore counts writes and reads going through to a real store.
type countingStore struct {
	store.Store
	creates atomic.Int32
	saves   atomic.Int32
	getAlls atomic.Int32
}

func (s *countingStore) CreateTableStore(ctx context.Context, schema store.Schema) error {
	s.creates.Add(1)
	return s.Store.CreateTableStore(ctx, schema)
}

func (s *countingStore) Save(ctx context.Context, table string, records []record.Record) error {
	s.saves.Add(1)
	return s.Store.Save(ctx, table, records)
}

func (s *countingStore) GetAll(ctx context.Context, table string) ([]record.Record, error) {
	s.getAlls.Add(1)
	return s.Store.GetAll(ctx, table)
}

func newManager(t *testing.T, src source.Source) (*Manager, *countingStore) {
	t.Helper()
	st, err := store.NewSQLite(testLogger(t), &store.SQLiteConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cs := &countingStore{Store: st}
	m, err := New(testLogger(t), nil, cs, src, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() {
		m.Close()
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return m, cs
}

func countriesDef() TableDefinition {
	return TableDefinition{
		Name:     "countries",
		Endpoint: "http://testdata.local/api/countries",
		KeyPath:  "code",
		Indexes:  []IndexDefinition{{Name: "by-region", KeyPath: "region"}},
	}
}

func countryRecords() []record.Record {
	return []record.Record{
		{"id": float64(1), "code": "US", "region": "NA"},
		{"id": float64(2), "code": "CA", "region": "NA"},
		{"id": float64(3), "code": "FR", "region": "EU"},
	}
}

func registerCountries(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.RegisterTable(context.Background(), countriesDef()); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func codesOf(records []record.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r["code"].(string))
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ============ Registration ============

func TestManager_RegisterTable(t *testing.T) {
	m, cs := newManager(t, newFakeSource(countryRecords(), "v1"))
	registerCountries(t, m)

	if got := cs.creates.Load(); got != 1 {
		t.Fatalf("CreateTableStore calls = %d, want 1", got)
	}
	st, err := m.SyncStatus("countries")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != SyncPending {
		t.Fatalf("state = %q, want %q", st.State, SyncPending)
	}
}

func TestManager_RegisterTable_Duplicate(t *testing.T) {
	m, cs := newManager(t, newFakeSource(countryRecords(), "v1"))
	registerCountries(t, m)

	dup := countriesDef()
	dup.Endpoint = "http://testdata.local/api/other"
	err := m.RegisterTable(context.Background(), dup)
	if !errors.Is(err, ErrDuplicateTable) {
		t.Fatalf("err = %v, want ErrDuplicateTable", err)
	}

	// The rejected attempt must not have touched the first registration.
	if got := cs.creates.Load(); got != 1 {
		t.Fatalf("CreateTableStore calls = %d, want 1", got)
	}
	stats := m.CacheStats()
	if len(stats.RegisteredTables) != 1 {
		t.Fatalf("registered tables = %v, want 1 entry", stats.RegisteredTables)
	}
}

func TestManager_RegisterTable_Validation(t *testing.T) {
	m, _ := newManager(t, newFakeSource(nil, ""))

	tests := []struct {
		name string
		def  TableDefinition
	}{
		{"empty name", TableDefinition{Endpoint: "http://x.local/a", KeyPath: "id"}},
		{"bad name", TableDefinition{Name: "9lives", Endpoint: "http://x.local/a", KeyPath: "id"}},
		{"missing endpoint", TableDefinition{Name: "a", KeyPath: "id"}},
		{"relative endpoint", TableDefinition{Name: "a", Endpoint: "/api/a", KeyPath: "id"}},
		{"bad scheme", TableDefinition{Name: "a", Endpoint: "ftp://x.local/a", KeyPath: "id"}},
		{"missing key path", TableDefinition{Name: "a", Endpoint: "http://x.local/a"}},
		{"sub-second interval", TableDefinition{
			Name: "a", Endpoint: "http://x.local/a", KeyPath: "id", SyncInterval: 100 * time.Millisecond,
		}},
		{"bad index name", TableDefinition{
			Name: "a", Endpoint: "http://x.local/a", KeyPath: "id",
			Indexes: []IndexDefinition{{Name: "by region", KeyPath: "region"}},
		}},
		{"index without key path", TableDefinition{
			Name: "a", Endpoint: "http://x.local/a", KeyPath: "id",
			Indexes: []IndexDefinition{{Name: "by-region"}},
		}},
		{"duplicate index", TableDefinition{
			Name: "a", Endpoint: "http://x.local/a", KeyPath: "id",
			Indexes: []IndexDefinition{
				{Name: "by-region", KeyPath: "region"},
				{Name: "by-region", KeyPath: "capital"},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.RegisterTable(context.Background(), tt.def); err == nil {
				t.Fatalf("RegisterTable(%+v) = nil, want error", tt.def)
			}
		})
	}
}

func TestManager_RegisterTable_EmitsEvent(t *testing.T) {
	m, _ := newManager(t, newFakeSource(countryRecords(), "v1"))

	var got atomic.Value
	m.Events().On(EventTableRegistered, func(e events.Event) {
		got.Store(e.Data)
	})
	registerCountries(t, m)

	payload, ok := got.Load().(TableEvent)
	if !ok {
		t.Fatalf("payload = %T, want TableEvent", got.Load())
	}
	if payload.Table != "countries" || payload.DisplayName != "countries" {
		t.Fatalf("payload = %+v", payload)
	}
}

// ============ Reads ============

func TestManager_GetData_FetchesAndCaches(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, cs := newManager(t, src)
	registerCountries(t, m)

	var fetched atomic.Int32
	m.Events().On(EventDataFetched, func(events.Event) { fetched.Add(1) })

	data, err := m.GetData(context.Background(), "countries")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("records = %d, want 3", len(data))
	}
	if got := cs.saves.Load(); got != 1 {
		t.Fatalf("saves = %d, want 1", got)
	}
	if got := fetched.Load(); got != 1 {
		t.Fatalf("data:fetched events = %d, want 1", got)
	}

	// Second read is served from memory.
	if _, err := m.GetData(context.Background(), "countries"); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}

func TestManager_GetData_PromotesStoreToMemory(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, cs := newManager(t, src)
	registerCountries(t, m)

	// Seed the store directly so memory starts cold.
	if err := cs.Store.Save(context.Background(), "countries", countryRecords()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	data, err := m.GetData(context.Background(), "countries")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("records = %d, want 3", len(data))
	}
	if got := src.fetches.Load(); got != 0 {
		t.Fatalf("fetches = %d, want 0", got)
	}

	before := cs.getAlls.Load()
	if _, err := m.GetData(context.Background(), "countries"); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if got := cs.getAlls.Load(); got != before {
		t.Fatalf("store reads after promotion = %d, want %d", got, before)
	}
}

func TestManager_GetData_EmptyMemoryEntryFallsThrough(t *testing.T) {
	src := newFakeSource([]record.Record{}, "v0")
	m, _ := newManager(t, src)
	registerCountries(t, m)

	// A sync of an empty dataset leaves an empty entry in every tier.
	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}

	src.set(countryRecords(), "v1", nil)
	data, err := m.GetData(context.Background(), "countries")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("records = %d, want 3: empty cache entry must not short-circuit", len(data))
	}
	if got := src.fetches.Load(); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
}

func TestManager_GetData_FetchFailureReturnsEmpty(t *testing.T) {
	src := newFakeSource(nil, "")
	src.set(nil, "", errors.New("backend down"))
	m, _ := newManager(t, src)
	registerCountries(t, m)

	var fetchErrs atomic.Int32
	m.Events().On(EventFetchError, func(events.Event) { fetchErrs.Add(1) })

	data, err := m.GetData(context.Background(), "countries")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("records = %d, want 0", len(data))
	}
	if got := fetchErrs.Load(); got != 1 {
		t.Fatalf("fetch:error events = %d, want 1", got)
	}
	lastErr, err := m.LastError("countries")
	if err != nil {
		t.Fatalf("last error: %v", err)
	}
	if lastErr != "backend down" {
		t.Fatalf("last error = %q, want %q", lastErr, "backend down")
	}

	// Recovery clears the recorded error.
	src.set(countryRecords(), "v1", nil)
	if _, err := m.GetData(context.Background(), "countries"); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	lastErr, _ = m.LastError("countries")
	if lastErr != "" {
		t.Fatalf("last error after recovery = %q, want empty", lastErr)
	}
}

func TestManager_GetData_UnknownTable(t *testing.T) {
	m, _ := newManager(t, newFakeSource(nil, ""))
	if _, err := m.GetData(context.Background(), "nope"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("err = %v, want ErrUnknownTable", err)
	}
}

func TestManager_GetDataByKey_StoreLookup(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, _ := newManager(t, src)
	registerCountries(t, m)

	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("sync: %v", err)
	}

	rec, found, err := m.GetDataByKey(context.Background(), "countries", "CA")
	if err != nil {
		t.Fatalf("GetDataByKey: %v", err)
	}
	if !found || rec["code"] != "CA" {
		t.Fatalf("record = %v found = %v, want CA", rec, found)
	}

	_, found, err = m.GetDataByKey(context.Background(), "countries", "XX")
	if err != nil {
		t.Fatalf("GetDataByKey: %v", err)
	}
	if found {
		t.Fatal("found = true for absent key")
	}
	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1: key lookups must not fetch", got)
	}
}

func TestManager_GetDataByKey_MemoryFallbackWithoutStore(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, err := New(testLogger(t), nil, nil, src, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(m.Close)
	registerCountries(t, m)

	if _, err := m.GetData(context.Background(), "countries"); err != nil {
		t.Fatalf("GetData: %v", err)
	}

	rec, found, err := m.GetDataByKey(context.Background(), "countries", "FR")
	if err != nil {
		t.Fatalf("GetDataByKey: %v", err)
	}
	if !found || rec["code"] != "FR" {
		t.Fatalf("record = %v found = %v, want FR", rec, found)
	}
}

// ============ Queries ============

func TestManager_Query_EndToEnd(t *testing.T) {
	m, _ := newManager(t, newFakeSource(countryRecords(), "v1"))
	registerCountries(t, m)

	res, err := m.Query(context.Background(), "countries", query.Options{
		Filters: []query.Filter{{Field: "region", Operator: query.OpEq, Value: "NA"}},
		Sort:    []query.SortKey{{Field: "code", Direction: query.Asc}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.TotalCount != 3 || res.FilteredCount != 2 {
		t.Fatalf("total = %d filtered = %d, want 3 and 2", res.TotalCount, res.FilteredCount)
	}
	if got := codesOf(res.Data); !sameStrings(got, []string{"CA", "US"}) {
		t.Fatalf("codes = %v, want [CA US]", got)
	}
}

func TestManager_Query_Invalid(t *testing.T) {
	m, _ := newManager(t, newFakeSource(countryRecords(), "v1"))
	registerCountries(t, m)

	_, err := m.Query(context.Background(), "countries", query.Options{
		Filters: []query.Filter{{Field: "region", Operator: "almost", Value: "NA"}},
	})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
	var iqe *InvalidQueryError
	if !errors.As(err, &iqe) || len(iqe.Messages) == 0 {
		t.Fatalf("err = %v, want InvalidQueryError with messages", err)
	}
}

func TestManager_Query_EmitsEvent(t *testing.T) {
	m, _ := newManager(t, newFakeSource(countryRecords(), "v1"))
	registerCountries(t, m)

	var got atomic.Value
	m.Events().On(EventQueryExecuted, func(e events.Event) { got.Store(e.Data) })

	if _, err := m.Query(context.Background(), "countries", query.Options{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	payload, ok := got.Load().(QueryEvent)
	if !ok {
		t.Fatalf("payload = %T, want QueryEvent", got.Load())
	}
	if payload.Table != "countries" || payload.FilteredCount != 3 {
		t.Fatalf("payload = %+v", payload)
	}
}

// ============ Sync ============

func TestManager_SyncTable_PersistsRecords(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, cs := newManager(t, src)
	registerCountries(t, m)

	var completed atomic.Int32
	m.Events().On(EventSyncCompleted, func(events.Event) { completed.Add(1) })

	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := cs.saves.Load(); got != 1 {
		t.Fatalf("saves = %d, want 1", got)
	}
	if got := completed.Load(); got != 1 {
		t.Fatalf("sync:completed events = %d, want 1", got)
	}

	st, err := m.SyncStatus("countries")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != SyncSynced || st.RecordsUpdated != 3 || st.Error != "" {
		t.Fatalf("status = %+v, want synced with 3 records", st)
	}
	if st.LastAttempt.IsZero() {
		t.Fatal("LastAttempt not recorded")
	}
}

func TestManager_SyncTable_VersionShortCircuit(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, cs := newManager(t, src)
	registerCountries(t, m)

	var completed atomic.Int32
	m.Events().On(EventSyncCompleted, func(events.Event) { completed.Add(1) })

	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if got := cs.saves.Load(); got != 1 {
		t.Fatalf("saves = %d, want 1: unchanged version must not rewrite", got)
	}
	if got := completed.Load(); got != 1 {
		t.Fatalf("sync:completed events = %d, want 1", got)
	}
	st, _ := m.SyncStatus("countries")
	if st.State != SyncSynced || st.RecordsUpdated != 0 {
		t.Fatalf("status = %+v, want synced with 0 records updated", st)
	}

	// A new token writes again.
	src.set(countryRecords(), "v2", nil)
	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if got := cs.saves.Load(); got != 2 {
		t.Fatalf("saves = %d, want 2", got)
	}
}

func TestManager_SyncTable_EmptyTokenAlwaysSyncs(t *testing.T) {
	src := newFakeSource(countryRecords(), "")
	m, cs := newManager(t, src)
	registerCountries(t, m)

	for i := 0; i < 2; i++ {
		if err := m.SyncTable(context.Background(), "countries"); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}
	if got := cs.saves.Load(); got != 2 {
		t.Fatalf("saves = %d, want 2: an empty token must never short-circuit", got)
	}
}

func TestManager_SyncTable_FailureSetsStatus(t *testing.T) {
	src := newFakeSource(nil, "")
	src.set(nil, "", errors.New("fetch exploded"))
	m, _ := newManager(t, src)
	registerCountries(t, m)

	var failed atomic.Int32
	m.Events().On(EventSyncFailed, func(events.Event) { failed.Add(1) })

	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	st, _ := m.SyncStatus("countries")
	if st.State != SyncFailed || st.Error != "fetch exploded" {
		t.Fatalf("status = %+v, want failed", st)
	}
	if got := failed.Load(); got != 1 {
		t.Fatalf("sync:failed events = %d, want 1", got)
	}
	lastErr, _ := m.LastError("countries")
	if lastErr != "fetch exploded" {
		t.Fatalf("last error = %q", lastErr)
	}
}

func TestManager_SyncTable_Unknown(t *testing.T) {
	m, _ := newManager(t, newFakeSource(nil, ""))
	if err := m.SyncTable(context.Background(), "nope"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("err = %v, want ErrUnknownTable", err)
	}
}

func TestManager_SyncAllTables_SingleInFlight(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	src.started = make(chan struct{}, 4)
	src.gate = make(chan struct{})
	m, cs := newManager(t, src)
	registerCountries(t, m)

	regions := countriesDef()
	regions.Name = "regions"
	regions.Endpoint = "http://testdata.local/api/regions"
	if err := m.RegisterTable(context.Background(), regions); err != nil {
		t.Fatalf("register regions: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.SyncTable(context.Background(), "countries"); err != nil {
			t.Errorf("sync: %v", err)
		}
	}()
	<-src.started

	// The guard is held by the blocked cycle; the whole burst skips.
	if err := m.SyncAllTables(context.Background()); err != nil {
		t.Fatalf("sync all: %v", err)
	}
	if got := cs.saves.Load(); got != 0 {
		t.Fatalf("saves during held sync = %d, want 0", got)
	}
	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1: skipped cycles must not fetch", got)
	}

	close(src.gate)
	<-done
	if got := cs.saves.Load(); got != 1 {
		t.Fatalf("saves after release = %d, want 1", got)
	}
}

// ============ Clearing ============

func TestManager_ClearAllCaches(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, _ := newManager(t, src)
	registerCountries(t, m)

	if _, err := m.GetData(context.Background(), "countries"); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if got := m.CacheStats().MemoryCacheSize; got != 1 {
		t.Fatalf("memory size = %d, want 1", got)
	}

	var cleared atomic.Int32
	m.Events().On(EventCacheCleared, func(events.Event) { cleared.Add(1) })

	if err := m.ClearAllCaches(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := m.CacheStats().MemoryCacheSize; got != 0 {
		t.Fatalf("memory size after clear = %d, want 0", got)
	}
	if got := cleared.Load(); got != 1 {
		t.Fatalf("cache:cleared events = %d, want 1", got)
	}

	// Registrations survive and the next read is a fresh network fetch.
	data, err := m.GetData(context.Background(), "countries")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("records = %d, want 3", len(data))
	}
	if got := src.fetches.Load(); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
}

func TestManager_ClearAllCaches_ResetsVersionToken(t *testing.T) {
	src := newFakeSource(countryRecords(), "v1")
	m, cs := newManager(t, src)
	registerCountries(t, m)

	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := m.ClearAllCaches(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}

	// The source still serves v1; an emptied partition must re-sync anyway.
	if err := m.SyncTable(context.Background(), "countries"); err != nil {
		t.Fatalf("sync after clear: %v", err)
	}
	if got := cs.saves.Load(); got != 2 {
		t.Fatalf("saves = %d, want 2: clear must invalidate the stored token", got)
	}
}

// ============ Lifecycle ============

func TestManager_CacheStats(t *testing.T) {
	m, _ := newManager(t, newFakeSource(countryRecords(), "v1"))
	registerCountries(t, m)

	airports := countriesDef()
	airports.Name = "airports"
	airports.Endpoint = "http://testdata.local/api/airports"
	if err := m.RegisterTable(context.Background(), airports); err != nil {
		t.Fatalf("register airports: %v", err)
	}
	if _, err := m.GetData(context.Background(), "countries"); err != nil {
		t.Fatalf("GetData: %v", err)
	}

	stats := m.CacheStats()
	if stats.MemoryCacheSize != 1 {
		t.Fatalf("memory size = %d, want 1", stats.MemoryCacheSize)
	}
	if !sameStrings(stats.RegisteredTables, []string{"airports", "countries"}) {
		t.Fatalf("tables = %v, want [airports countries]", stats.RegisteredTables)
	}
	if len(stats.SyncStatus) != 2 {
		t.Fatalf("statuses = %d, want 2", len(stats.SyncStatus))
	}
}

func TestManager_CloseRejectsOperations(t *testing.T) {
	m, _ := newManager(t, newFakeSource(countryRecords(), "v1"))
	registerCountries(t, m)
	m.Close()

	if _, err := m.GetData(context.Background(), "countries"); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("GetData err = %v, want ErrManagerClosed", err)
	}
	if err := m.RegisterTable(context.Background(), countriesDef()); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("RegisterTable err = %v, want ErrManagerClosed", err)
	}
	if err := m.SyncTable(context.Background(), "countries"); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("SyncTable err = %v, want ErrManagerClosed", err)
	}
	if err := m.ClearAllCaches(context.Background()); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("ClearAllCaches err = %v, want ErrManagerClosed", err)
	}
}
