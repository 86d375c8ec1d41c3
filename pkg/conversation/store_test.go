package conversation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryStore_AppendAndRecent(t *testing.T) {
	store := NewMemoryStore(10)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		turn := &Turn{
			Identity: "user-1",
			Role:     "user",
			Content:  fmt.Sprintf("message %d", i),
		}
		if err := store.Append(ctx, turn); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if turn.ID == "" {
			t.Error("expected Append to assign an ID")
		}
		if turn.CreatedAt.IsZero() {
			t.Error("expected Append to assign CreatedAt")
		}
	}

	turns, err := store.Recent(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	// Oldest first.
	if turns[0].Content != "message 0" {
		t.Errorf("expected oldest turn first, got %q", turns[0].Content)
	}
	if turns[2].Content != "message 2" {
		t.Errorf("expected newest turn last, got %q", turns[2].Content)
	}
}

func TestMemoryStore_BoundedPerIdentity(t *testing.T) {
	store := NewMemoryStore(2)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := store.Append(ctx, &Turn{
			Identity: "user-1",
			Role:     "user",
			Content:  fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	turns, err := store.Recent(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns after trimming, got %d", len(turns))
	}
	if turns[0].Content != "message 3" || turns[1].Content != "message 4" {
		t.Errorf("expected the two newest turns, got %q and %q", turns[0].Content, turns[1].Content)
	}
}

func TestMemoryStore_RecentLimit(t *testing.T) {
	store := NewMemoryStore(10)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, &Turn{Identity: "u", Role: "user", Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	turns, err := store.Recent(ctx, "u", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Content != "m3" {
		t.Errorf("expected m3 first, got %q", turns[0].Content)
	}
}

func TestMemoryStore_IdentityIsolation(t *testing.T) {
	store := NewMemoryStore(10)
	defer store.Close()

	ctx := context.Background()
	if err := store.Append(ctx, &Turn{Identity: "alice", Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, &Turn{Identity: "bob", Role: "user", Content: "yo"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	turns, err := store.Recent(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "hi" {
		t.Errorf("expected only alice's turn, got %+v", turns)
	}
}

func TestMemoryStore_Cleanup(t *testing.T) {
	store := NewMemoryStore(10)
	defer store.Close()

	base := time.Now()
	store.now = func() time.Time { return base }

	ctx := context.Background()
	if err := store.Append(ctx, &Turn{Identity: "u", Role: "user", Content: "old"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	store.now = func() time.Time { return base.Add(time.Hour) }
	if err := store.Append(ctx, &Turn{Identity: "u", Role: "user", Content: "new"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	removed, err := store.Cleanup(ctx, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	turns, err := store.Recent(ctx, "u", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "new" {
		t.Errorf("expected only the new turn to survive, got %+v", turns)
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "conversation.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_AppendAndRecent(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 3; i++ {
		err := store.Append(ctx, &Turn{
			Identity:  "user-1",
			Role:      "user",
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	turns, err := store.Recent(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Content != "message 1" || turns[1].Content != "message 2" {
		t.Errorf("expected the two newest turns oldest first, got %q and %q",
			turns[0].Content, turns[1].Content)
	}
}

func TestSQLiteStore_EmptyIdentity(t *testing.T) {
	store := newTestSQLiteStore(t)

	if err := store.Append(context.Background(), &Turn{Identity: "", Content: "x"}); err == nil {
		t.Error("expected error for empty identity")
	}
	if _, err := store.Recent(context.Background(), "", 5); err == nil {
		t.Error("expected error for empty identity")
	}
}

func TestSQLiteStore_Cleanup(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	base := time.Now()
	err := store.Append(ctx, &Turn{
		Identity: "u", Role: "user", Content: "old",
		CreatedAt: base.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	err = store.Append(ctx, &Turn{
		Identity: "u", Role: "assistant", Content: "new",
		CreatedAt: base,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	removed, err := store.Cleanup(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	turns, err := store.Recent(ctx, "u", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "new" {
		t.Errorf("expected only the new turn to survive, got %+v", turns)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "conversation.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Append(ctx, &Turn{Identity: "u", Role: "user", Content: "persisted"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	turns, err := reopened.Recent(ctx, "u", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "persisted" {
		t.Errorf("expected persisted turn after reopen, got %+v", turns)
	}
}
