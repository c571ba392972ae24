package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Embed colours per alert level.
const (
	discordBlue   = 0x3498DB
	discordOrange = 0xE67E22
	discordRed    = 0xE74C3C
)

// DiscordNotifier posts alerts to a Discord channel webhook as embeds.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a Discord notifier for an incoming webhook URL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

func (d *DiscordNotifier) Send(ctx context.Context, alert Alert) error {
	color := discordBlue
	switch alert.Level {
	case AlertWarning:
		color = discordOrange
	case AlertCritical:
		color = discordRed
	}

	embed := discordEmbed{
		Title:       alert.Title,
		Description: alert.Message,
		Color:       color,
	}
	if alert.Signal != nil && !alert.Signal.TS.IsZero() {
		embed.Timestamp = alert.Signal.TS.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(discordMessage{Embeds: []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("discord: marshal: %w", err)
	}

	// Discord answers 204 No Content on success.
	if err := postJSON(ctx, d.client, d.webhookURL, body); err != nil {
		return fmt.Errorf("discord: %w", err)
	}

	slog.Debug("discord alert sent", "title", alert.Title)
	return nil
}
