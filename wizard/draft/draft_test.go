package draft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClient_Save(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotDraft       Draft
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotDraft); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	err := client.Save(context.Background(), Draft{
		DraftID:     "game_1",
		GameName:    "Neon Nights",
		CurrentStep: 4,
		Config:      map[string]interface{}{"category": "video_slots"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotDraft.DraftID != "game_1" || gotDraft.CurrentStep != 4 {
		t.Errorf("payload = %+v", gotDraft)
	}
	if gotDraft.Config["category"] != "video_slots" {
		t.Errorf("config = %v", gotDraft.Config)
	}
}

func TestHTTPClient_SaveNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	if err := client.Save(context.Background(), Draft{DraftID: "game_1"}); err == nil {
		t.Fatal("Save against a 500 endpoint should fail")
	}
}

func TestHTTPClient_SaveUnreachable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", 200*time.Millisecond)
	if err := client.Save(context.Background(), Draft{DraftID: "game_1"}); err == nil {
		t.Fatal("Save against an unreachable endpoint should fail")
	}
}
