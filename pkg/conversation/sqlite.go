package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence, so
// conversation context survives restarts. Suitable for
// single-instance deployments.
//
// The store opens the database in WAL mode for better concurrent
// read performance.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string

	appendStmt  *sql.Stmt
	recentStmt  *sql.Stmt
	cleanupStmt *sql.Stmt
}

// NewSQLiteStore opens (or creates) a conversation database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_identity_created ON turns(identity, created_at);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.appendStmt, err = s.db.Prepare(`
		INSERT INTO turns (id, identity, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare append statement: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(`
		SELECT id, identity, role, content, created_at
		FROM turns
		WHERE identity = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`
		DELETE FROM turns
		WHERE created_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("turn cannot be nil")
	}
	if turn.Identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	_, err := s.appendStmt.ExecContext(ctx,
		turn.ID,
		turn.Identity,
		turn.Role,
		turn.Content,
		turn.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	return nil
}

// Recent implements Store.
func (s *SQLiteStore) Recent(ctx context.Context, identity string, n int) ([]Turn, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity cannot be empty")
	}
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.recentStmt.QueryContext(ctx, identity, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn      Turn
			createdAt int64
		)
		if err := rows.Scan(&turn.ID, &turn.Identity, &turn.Role, &turn.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		turn.CreatedAt = time.Unix(0, createdAt)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Query returns newest first; callers want oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// Cleanup implements Store.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
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
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s.appendStmt != nil {
		s.appendStmt.Close()
	}
	if s.recentStmt != nil {
		s.recentStmt.Close()
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
