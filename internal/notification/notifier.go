// Package notification delivers signal alerts to external channels
// (Telegram, Discord, webhooks).
package notification

import (
	"context"
	"errors"
	"log/slog"

	"tripleconfirm/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel        `json:"level"`
	Symbol  string            `json:"symbol,omitempty"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Signal  *model.SignalView `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.InfoContext(ctx, "notify", "level", alert.Level, "symbol", alert.Symbol, "title", alert.Title, "message", alert.Message)
	return nil
}

// Multi sends every alert to all of its notifiers. A failing notifier does
// not stop delivery to the rest; their errors are joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
