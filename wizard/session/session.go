// Package session provides durable persistence for wizard configuration
// sessions and resolution of the effective session identity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested session ID does not exist.
var ErrNotFound = errors.New("session not found")

// Session is the durable unit of a single in-progress or completed game
// configuration effort, addressable by its session ID.
//
// Config is a deeply-nested, schema-loose record. It is mutated only via
// merge by the orchestration layer; Store implementations treat it as an
// opaque JSON document.
type Session struct {
	ID           string                 `json:"sessionId"`
	Config       map[string]interface{} `json:"config"`
	CreatedAt    time.Time              `json:"createdAt"`
	LastModified time.Time              `json:"lastModified"`
}

// Store provides persistence for sessions and the single "active session"
// pointer, surviving full process restarts.
//
// Implementations can use:
//   - In-memory storage (for testing, see memory.go)
//   - SQLite (single-file local persistence, see sqlite.go)
//   - MySQL/MariaDB (shared production persistence, see mysql.go)
//
// All writes must be atomic from the caller's perspective: a reader never
// observes a half-written Session.
type Store interface {
	// Create writes a new Session with the given config and sets it as the
	// active session pointer. CreatedAt and LastModified are set to now.
	Create(ctx context.Context, id string, config map[string]interface{}) error

	// Persist upserts the session's config and LastModified timestamp.
	// It never deletes or touches unrelated sessions. Persisting an unknown
	// id creates the record (upsert semantics).
	Persist(ctx context.Context, id string, config map[string]interface{}) error

	// Load retrieves a session by ID.
	// Returns ErrNotFound if the id has no backing record.
	Load(ctx context.Context, id string) (Session, error)

	// ActiveSession returns the persisted active-session pointer, or ""
	// when no session has been activated.
	ActiveSession(ctx context.Context) (string, error)

	// SetActiveSession updates the active-session pointer.
	SetActiveSession(ctx context.Context, id string) error

	// List returns all persisted sessions ordered by LastModified descending.
	List(ctx context.Context) ([]Session, error)
}

// NewID generates a session identifier from a wall-clock instant.
//
// The format is "game_<unix-millis>", matching the addressing scheme used
// by deep links (?game=game_1700000000000).
func NewID(now time.Time) string {
	return fmt.Sprintf("game_%d", now.UnixMilli())
}

// cloneConfig deep-copies a config document via JSON round-trip so that
// callers and the store never share mutable state.
func cloneConfig(config map[string]interface{}) (map[string]interface{}, error) {
	if config == nil {
		return map[string]interface{}{}, nil
	}

	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var copied map[string]interface{}
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return copied, nil
}
