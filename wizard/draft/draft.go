// Package draft provides the write-only draft snapshot client and the
// debounced background autosave service.
package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PlaceholderID is the draft id used before a session exists.
const PlaceholderID = "draft_pending"

// Draft is the external, write-only snapshot of a session's progress sent
// for backup/preview purposes. Never read back by this layer.
type Draft struct {
	DraftID     string                 `json:"draftId"`
	GameName    string                 `json:"gameName"`
	Description string                 `json:"description"`
	LastUpdated time.Time              `json:"lastUpdated"`
	CurrentStep int                    `json:"currentStep"`
	Config      map[string]interface{} `json:"config"`
}

// Client sends drafts to the external draft endpoint.
//
// No response contract is consumed beyond success/failure.
type Client interface {
	Save(ctx context.Context, d Draft) error
}

// HTTPClient is the production Client: a JSON POST to a fixed endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient creates a draft client for the given endpoint URL.
// A timeout of 0 defaults to 10 seconds.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Save serializes the draft and POSTs it to the endpoint. Any non-2xx
// status is a failure; the body is drained and discarded.
func (h *HTTPClient) Save(ctx context.Context, d Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("draft endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
