package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tripleconfirm/internal/model"
)

// WebhookNotifier POSTs alerts as JSON to a generic HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type webhookPayload struct {
	Level   string            `json:"level"`
	Symbol  string            `json:"symbol,omitempty"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Signal  *model.SignalView `json:"signal,omitempty"`
	TS      string            `json:"ts"`
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Level:   string(alert.Level),
		Symbol:  alert.Symbol,
		Title:   alert.Title,
		Message: alert.Message,
		Signal:  alert.Signal,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	if err := postJSON(ctx, w.client, w.url, body); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	slog.Debug("webhook alert sent", "url", w.url, "title", alert.Title)
	return nil
}

// statusError is a non-2xx reply; Body holds the start of the response.
type statusError struct {
	Status int
	Body   []byte
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Status) }

// postJSON POSTs body and treats any non-2xx status as a *statusError.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{Status: resp.StatusCode, Body: snippet}
	}
	return nil
}
