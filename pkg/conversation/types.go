// Package conversation stores short per-user conversation context fed
// back to the LLM provider on follow-up questions.
//
// Two backends exist: an in-memory store (default, bounded, lost on
// restart) and a SQLite store for deployments that want context to
// survive restarts. Both are safe for concurrent use.
package conversation

import (
	"context"
	"time"
)

// Turn is one message in a user's conversation.
type Turn struct {
	// ID is a UUID assigned at append time.
	ID string

	// Identity is the user the turn belongs to.
	Identity string

	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string

	// CreatedAt is when the turn was recorded.
	CreatedAt time.Time
}

// Store persists conversation turns. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append records a turn. The store assigns ID and CreatedAt when
	// they are zero.
	Append(ctx context.Context, turn *Turn) error

	// Recent returns up to n most recent turns for identity, oldest
	// first, ready to prepend to a provider request.
	Recent(ctx context.Context, identity string, n int) ([]Turn, error)

	// Cleanup removes turns older than the cutoff and returns the
	// number removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
