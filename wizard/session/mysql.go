package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for:
//   - Production deployments requiring shared persistence
//   - Sessions that survive process restarts and host failures
//
// MySQLStore uses connection pooling and transactions for reliability.
//
// Schema:
//   - wizard_sessions: one row per session, config stored as JSON
//   - wizard_active_session: single-row table holding the active pointer
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed session store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example: user:password@tcp(localhost:3306)/wizard?parseTime=true
//
// Never hardcode credentials in source code; read the DSN from the
// environment.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	store := &MySQLStore{db: db}

	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	sessionsTable := `
		CREATE TABLE IF NOT EXISTS wizard_sessions (
			session_id VARCHAR(255) NOT NULL PRIMARY KEY,
			config JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL,
			last_modified TIMESTAMP(6) NOT NULL,
			INDEX idx_last_modified (last_modified)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, sessionsTable); err != nil {
		return fmt.Errorf("failed to create wizard_sessions table: %w", err)
	}

	activeTable := `
		CREATE TABLE IF NOT EXISTS wizard_active_session (
			id TINYINT NOT NULL PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, activeTable); err != nil {
		return fmt.Errorf("failed to create wizard_active_session table: %w", err)
	}

	return nil
}

// Create writes a new Session and sets it as the active session pointer
// in one transaction.
func (m *MySQLStore) Create(ctx context.Context, id string, config map[string]interface{}) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	ts := time.Now().UTC()

	tx, err := m.db.BeginTx(ctx, nil)
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
		ON DUPLICATE KEY UPDATE
			config = VALUES(config),
			last_modified = VALUES(last_modified)
	`
	if _, err = tx.ExecContext(ctx, insertQuery, id, string(configJSON), ts, ts); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	pointerQuery := `
		INSERT INTO wizard_active_session (id, session_id)
		VALUES (1, ?)
		ON DUPLICATE KEY UPDATE session_id = VALUES(session_id)
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
func (m *MySQLStore) Persist(ctx context.Context, id string, config map[string]interface{}) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	ts := time.Now().UTC()

	query := `
		INSERT INTO wizard_sessions (session_id, config, created_at, last_modified)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			config = VALUES(config),
			last_modified = VALUES(last_modified)
	`
	if _, err := m.db.ExecContext(ctx, query, id, string(configJSON), ts, ts); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	return nil
}

// Load retrieves a session by ID. Returns ErrNotFound for unknown ids.
func (m *MySQLStore) Load(ctx context.Context, id string) (Session, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return Session{}, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		SELECT session_id, config, created_at, last_modified
		FROM wizard_sessions
		WHERE session_id = ?
	`

	var (
		sess       Session
		configJSON string
	)

	err := m.db.QueryRowContext(ctx, query, id).Scan(&sess.ID, &configJSON, &sess.CreatedAt, &sess.LastModified)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &sess.Config); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return sess, nil
}

// ActiveSession returns the persisted active-session pointer, "" when unset.
func (m *MySQLStore) ActiveSession(ctx context.Context) (string, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return "", fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	var id string
	err := m.db.QueryRowContext(ctx, "SELECT session_id FROM wizard_active_session WHERE id = 1").Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active session: %w", err)
	}
	return id, nil
}

// SetActiveSession updates the active-session pointer.
func (m *MySQLStore) SetActiveSession(ctx context.Context, id string) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		INSERT INTO wizard_active_session (id, session_id)
		VALUES (1, ?)
		ON DUPLICATE KEY UPDATE session_id = VALUES(session_id)
	`
	if _, err := m.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to set active session: %w", err)
	}
	return nil
}

// List returns all sessions ordered by LastModified descending.
func (m *MySQLStore) List(ctx context.Context) ([]Session, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		SELECT session_id, config, created_at, last_modified
		FROM wizard_sessions
		ORDER BY last_modified DESC
	`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var (
			sess       Session
			configJSON string
		)
		if err := rows.Scan(&sess.ID, &configJSON, &sess.CreatedAt, &sess.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &sess.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
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
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	return m.db.PingContext(ctx)
}

// Stats returns database connection pool statistics for monitoring.
func (m *MySQLStore) Stats() sql.DBStats {
	return m.db.Stats()
}
