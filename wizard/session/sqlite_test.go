package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "wizard.db"))
	if err != nil {
		t.Fatalf("failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	config := map[string]interface{}{
		"category": "video_slots",
		"gameName": "Neon Nights",
		"layout":   map[string]interface{}{"reels": float64(5), "rows": float64(3)},
	}
	if err := store.Create(ctx, "game_1", config); err != nil {
		t.Fatal(err)
	}

	sess, err := store.Load(ctx, "game_1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != "game_1" {
		t.Errorf("ID = %q", sess.ID)
	}
	if sess.Config["gameName"] != "Neon Nights" {
		t.Errorf("config = %v", sess.Config)
	}
	layout, _ := sess.Config["layout"].(map[string]interface{})
	if layout == nil || layout["reels"] != float64(5) {
		t.Errorf("nested config lost on round trip: %v", sess.Config["layout"])
	}
	if sess.CreatedAt.IsZero() || sess.LastModified.IsZero() {
		t.Error("timestamps not persisted")
	}
}

func TestSQLiteStore_LoadNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)
	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_PersistUpserts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.Persist(ctx, "game_1", map[string]interface{}{"v": "a"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Persist(ctx, "game_1", map[string]interface{}{"v": "b"}); err != nil {
		t.Fatal(err)
	}

	sess, err := store.Load(ctx, "game_1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Config["v"] != "b" {
		t.Errorf("config = %v, want v=b", sess.Config)
	}
}

func TestSQLiteStore_ActivePointer(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	active, err := store.ActiveSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != "" {
		t.Errorf("active = %q before any session", active)
	}

	if err := store.Create(ctx, "game_1", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, "game_2", nil); err != nil {
		t.Fatal(err)
	}

	active, err = store.ActiveSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != "game_2" {
		t.Errorf("active = %q, want game_2", active)
	}

	if err := store.SetActiveSession(ctx, "game_1"); err != nil {
		t.Fatal(err)
	}
	active, _ = store.ActiveSession(ctx)
	if active != "game_1" {
		t.Errorf("active = %q after SetActiveSession", active)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	for _, id := range []string{"game_a", "game_b"} {
		if err := store.Create(ctx, id, map[string]interface{}{"id": id}); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len = %d, want 2", len(sessions))
	}
	seen := map[string]bool{}
	for _, s := range sessions {
		seen[s.ID] = true
	}
	if !seen["game_a"] || !seen["game_b"] {
		t.Errorf("sessions = %v", seen)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wizard.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, "game_1", map[string]interface{}{"gameName": "Kept"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	sess, err := reopened.Load(ctx, "game_1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Config["gameName"] != "Kept" {
		t.Errorf("config = %v, want gameName=Kept across reopen", sess.Config)
	}
	active, err := reopened.ActiveSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != "game_1" {
		t.Errorf("active pointer = %q, want game_1 across reopen", active)
	}
}

func TestSQLiteStore_OperationsAfterClose(t *testing.T) {
	store := newTestSQLiteStore(t)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(context.Background(), "game_1", nil); err == nil {
		t.Error("Create after Close should fail")
	}
}
