package masterdata

import "time"

// SyncState is the lifecycle phase of a table's synchronization.
type SyncState string

const (
	// SyncPending means no sync cycle has run since registration.
	SyncPending SyncState = "pending"
	// SyncSyncing means a cycle for this table holds the in-flight guard.
	SyncSyncing SyncState = "syncing"
	// SyncSynced means the last cycle finished without error.
	SyncSynced SyncState = "synced"
	// SyncFailed means the last cycle aborted; Error holds the message.
	SyncFailed SyncState = "failed"
)

// SyncStatus is a snapshot of one table's synchronization outcome.
// RecordsUpdated counts the records written by the last completed cycle;
// an unchanged version token leaves it at zero.
type SyncStatus struct {
	State          SyncState `json:"state"`
	RecordsUpdated int       `json:"recordsUpdated"`
	Error          string    `json:"error,omitempty"`
	LastAttempt    time.Time `json:"lastAttempt"`
}
