// Package usage records per-request token usage and serves aggregate
// summaries per identity. Records are written asynchronously so the
// request path never blocks on the ledger.
package usage

import (
	"context"
	"time"
)

// Record is one request's usage ledger entry.
type Record struct {
	// ID is a UUID assigned at record time.
	ID string

	// Identity is the user the request was made on behalf of.
	Identity string

	// Provider is the upstream provider name.
	Provider string

	// Model is the model that served the request.
	Model string

	// PromptTokens and CompletionTokens are the provider-reported
	// token counts. Both are zero for cache hits.
	PromptTokens     int
	CompletionTokens int

	// CacheHit is true when the response was served from cache
	// without a provider call.
	CacheHit bool

	// LatencyMs is the end-to-end request latency in milliseconds.
	LatencyMs int64

	// CreatedAt is when the request completed.
	CreatedAt time.Time
}

// Summary aggregates an identity's ledger entries.
type Summary struct {
	Identity         string `json:"identity"`
	Requests         int64  `json:"requests"`
	CacheHits        int64  `json:"cache_hits"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}

// Storage persists usage records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Summarize aggregates all records for an identity.
	Summarize(ctx context.Context, identity string) (*Summary, error)

	// Cleanup removes records older than the cutoff and returns the
	// number removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
