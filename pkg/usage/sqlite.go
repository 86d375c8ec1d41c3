package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB

	storeStmt     *sql.Stmt
	summarizeStmt *sql.Stmt
	cleanupStmt   *sql.Stmt
}

// NewSQLiteStorage opens (or creates) a usage ledger database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		cache_hit INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_identity ON usage_records(identity);
	CREATE INDEX IF NOT EXISTS idx_usage_created ON usage_records(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) prepareStatements() error {
	var err error

	s.storeStmt, err = s.db.Prepare(`
		INSERT INTO usage_records
			(id, identity, provider, model, prompt_tokens, completion_tokens, cache_hit, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare store statement: %w", err)
	}

	s.summarizeStmt, err = s.db.Prepare(`
		SELECT
			COUNT(*),
			COALESCE(SUM(cache_hit), 0),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0)
		FROM usage_records
		WHERE identity = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare summarize statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`
		DELETE FROM usage_records
		WHERE created_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Store implements Storage.
func (s *SQLiteStorage) Store(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	if record.Identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}

	cacheHit := 0
	if record.CacheHit {
		cacheHit = 1
	}

	_, err := s.storeStmt.ExecContext(ctx,
		record.ID,
		record.Identity,
		record.Provider,
		record.Model,
		record.PromptTokens,
		record.CompletionTokens,
		cacheHit,
		record.LatencyMs,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}

	return nil
}

// Summarize implements Storage.
func (s *SQLiteStorage) Summarize(ctx context.Context, identity string) (*Summary, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity cannot be empty")
	}

	summary := &Summary{Identity: identity}
	err := s.summarizeStmt.QueryRowContext(ctx, identity).Scan(
		&summary.Requests,
		&summary.CacheHits,
		&summary.PromptTokens,
		&summary.CompletionTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}

	return summary, nil
}

// Cleanup implements Storage.
func (s *SQLiteStorage) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(deleted), nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases database resources.
func (s *SQLiteStorage) Close() error {
	if s.storeStmt != nil {
		s.storeStmt.Close()
	}
	if s.summarizeStmt != nil {
		s.summarizeStmt.Close()
	}
	if s.cleanupStmt != nil {
		s.cleanupStmt.Close()
	}
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
