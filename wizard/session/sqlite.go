package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It persists sessions and the active-session pointer in a single-file
// database, surviving full process restarts. Designed for:
//   - Local development with zero setup
//   - Single-process deployments requiring durable sessions
//
// SQLiteStore uses WAL mode for concurrent reads and transactional writes,
// so a reader never observes a half-written Session.
//
// Schema:
//   - wizard_sessions: one row per session, config stored as JSON
//   - wizard_active_session: single-row table holding the active pointer
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed session store.
//
// The path parameter specifies the database file location:
//   - "./wizard.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close; tests only)
//
// The store automatically creates the database file and required tables,
// enables WAL mode, and configures a busy timeout.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}

	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	sessionsTable := `
		CREATE TABLE IF NOT EXISTS wizard_sessions (
			session_id TEXT NOT NULL PRIMARY KEY,
			config TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_modified TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, sessionsTable); err != nil {
		return fmt.Errorf("failed to create wizard_sessions table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_sessions_modified ON wizard_sessions(last_modified)"); err != nil {
		return fmt.Errorf("failed to create idx_sessions_modified: %w", err)
	}

	// Single-row table: id is always 1.
	activeTable := `
		CREATE TABLE IF NOT EXISTS wizard_active_session (
			id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
			session_id TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, activeTable); err != nil {
		return fmt.Errorf("failed to create wizard_active_session table: %w", err)
	}

	return nil
}

// Create writes a new Session and sets it as the active session pointer.
//
// Both writes happen in one transaction so readers observe either the full
// new session with its pointer or neither.
func (s *SQLiteStore) Create(ctx context.Context, id string, config map[string]interface{}) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertQuery := `
		INSERT INTO wizard_sessions (session_id, config, created_at, last_modified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			config = excluded.config,
			last_modified = excluded.last_modified
	`
	if _, err = tx.ExecContext(ctx, insertQuery, id, string(configJSON), ts, ts); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	pointerQuery := `
		INSERT INTO wizard_active_session (id, session_id)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET session_id = excluded.session_id
	`
	if _, err = tx.ExecContext(ctx, pointerQuery, id); err != nil {
		return fmt.Errorf("failed to set active session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Persist upserts the session's config and LastModified timestamp.
func (s *SQLiteStore) Persist(ctx context.Context, id string, config map[string]interface{}) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)

	query := `
		INSERT INTO wizard_sessions (session_id, config, created_at, last_modified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			config = excluded.config,
			last_modified = excluded.last_modified
	`
	if _, err := s.db.ExecContext(ctx, query, id, string(configJSON), ts, ts); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	return nil
}

// Load retrieves a session by ID. Returns ErrNotFound for unknown ids.
func (s *SQLiteStore) Load(ctx context.Context, id string) (Session, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return Session{}, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		SELECT session_id, config, created_at, last_modified
		FROM wizard_sessions
		WHERE session_id = ?
	`

	var (
		sess         Session
		configJSON   string
		createdAt    string
		lastModified string
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(&sess.ID, &configJSON, &createdAt, &lastModified)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &sess.Config); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if sess.LastModified, err = time.Parse(time.RFC3339Nano, lastModified); err != nil {
		return Session{}, fmt.Errorf("failed to parse last_modified: %w", err)
	}

	return sess, nil
}

// ActiveSession returns the persisted active-session pointer, "" when unset.
func (s *SQLiteStore) ActiveSession(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return "", fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	var id string
	err := s.db.QueryRowContext(ctx, "SELECT session_id FROM wizard_active_session WHERE id = 1").Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active session: %w", err)
	}
	return id, nil
}

// SetActiveSession updates the active-session pointer.
func (s *SQLiteStore) SetActiveSession(ctx context.Context, id string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		INSERT INTO wizard_active_session (id, session_id)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET session_id = excluded.session_id
	`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to set active session: %w", err)
	}
	return nil
}

// List returns all sessions ordered by LastModified descending.
func (s *SQLiteStore) List(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		SELECT session_id, config, created_at, last_modified
		FROM wizard_sessions
		ORDER BY last_modified DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var (
			sess         Session
			configJSON   string
			createdAt    string
			lastModified string
		)
		if err := rows.Scan(&sess.ID, &configJSON, &createdAt, &lastModified); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &sess.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if sess.LastModified, err = time.Parse(time.RFC3339Nano, lastModified); err != nil {
			return nil, fmt.Errorf("failed to parse last_modified: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// Close closes the database connection.
//
// After Close, all operations will return an error.
// Calling Close multiple times is safe.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}
