package masterdata

import "time"

// Event types emitted on the Manager's notifier.
const (
	// EventTableRegistered fires once per successful registration.
	EventTableRegistered = "table:registered"
	// EventDataFetched fires when a read fell through to the network and
	// the fetch succeeded.
	EventDataFetched = "data:fetched"
	// EventFetchError fires when a read fell through to the network and
	// the fetch failed; the read itself returns an empty slice.
	EventFetchError = "fetch:error"
	// EventSyncCompleted fires when a sync cycle wrote fresh data. A cycle
	// short-circuited by an unchanged version token does not fire it.
	EventSyncCompleted = "sync:completed"
	// EventSyncFailed fires when a sync cycle aborted.
	EventSyncFailed = "sync:failed"
	// EventCacheCleared fires after ClearAllCaches.
	EventCacheCleared = "cache:cleared"
	// EventQueryExecuted fires after every successful Query.
	EventQueryExecuted = "query:executed"
)

// TableEvent is the payload of table:registered.
type TableEvent struct {
	Table       string `json:"table"`
	DisplayName string `json:"displayName"`
}

// FetchEvent is the payload of data:fetched and sync:completed.
type FetchEvent struct {
	Table   string `json:"table"`
	Count   int    `json:"count"`
	Version string `json:"version,omitempty"`
}

// FetchErrorEvent is the payload of fetch:error and sync:failed.
type FetchErrorEvent struct {
	Table string `json:"table"`
	Error string `json:"error"`
}

// CacheClearedEvent is the payload of cache:cleared.
type CacheClearedEvent struct {
	Tables []string `json:"tables"`
}

// QueryEvent is the payload of query:executed.
type QueryEvent struct {
	Table         string        `json:"table"`
	FilteredCount int           `json:"filteredCount"`
	Duration      time.Duration `json:"duration"`
}
