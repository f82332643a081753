// Package source fetches a table's records from its remote endpoint and
// extracts the server-supplied version token. Clients are stateless; all
// sync bookkeeping lives with the orchestrator and the store.
package source

import (
	"context"

	"github.com/helixdata/mdkit/record"
)

// VersionHeader is the response header carrying the opaque version token.
// An absent header yields an empty token, which callers treat as "version
// unknown" and never use to short-circuit a sync.
const VersionHeader = "X-Master-Data-Version"

// Source fetches the full record set behind an endpoint
type Source interface {
	// Fetch returns the endpoint's records and version token. The context
	// bounds all attempts including retry backoff.
	Fetch(ctx context.Context, endpoint string) ([]record.Record, string, error)
}
