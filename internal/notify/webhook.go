// Package notify posts best-effort alerts about failed storage operations
// to a configured webhook. A notification failure is logged by the caller
// but never escalated into a round failure.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Webhook posts a JSON payload describing a failed operation.
type Webhook struct {
	URL      string
	Username string
	Password string
}

// OperationFailure is the payload posted on a failed create/destroy/list
// of a single pool, filesystem or snapshot. A Fatal error that aborts the
// whole invocation is not posted.
type OperationFailure struct {
	Service   string    `json:"service"`
	Path      string    `json:"path"`
	Name      string    `json:"name,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notify posts failure to w.URL. A nil Webhook or an empty URL means
// notifications are disabled, and Notify is a no-op.
func (w *Webhook) Notify(ctx context.Context, failure OperationFailure) error {
	if w == nil || w.URL == "" {
		return nil
	}

	payload, err := json.Marshal(failure)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Username != "" || w.Password != "" {
		req.SetBasicAuth(w.Username, w.Password)
	}

	client := http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook notification failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notification rejected with status %d", resp.StatusCode)
	}
	return nil
}
