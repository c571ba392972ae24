package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tripleconfirm/internal/model"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends alerts through the Telegram Bot API as MarkdownV2
// messages.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// NewTelegramNotifier creates a notifier for the bot token issued by
// @BotFather, posting to chatID (a user, group or channel id).
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:    t.chatID,
		Text:      telegramText(alert),
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := t.apiBase + "/bot" + t.botToken + "/sendMessage"
	if err := postJSON(ctx, t.client, url, body); err != nil {
		// The Bot API explains rejections in "description".
		var se *statusError
		if errors.As(err, &se) {
			if desc := gjson.GetBytes(se.Body, "description").String(); desc != "" {
				return fmt.Errorf("telegram: %d %s", se.Status, desc)
			}
		}
		return fmt.Errorf("telegram: %w", err)
	}

	slog.Debug("telegram alert sent", "symbol", alert.Symbol, "title", alert.Title)
	return nil
}

// telegramText renders the title in bold with a direction marker, then the
// message on its own paragraph.
func telegramText(alert Alert) string {
	marker := "ℹ️"
	switch {
	case alert.Signal != nil && alert.Signal.Type == model.SignalTypeBuy:
		marker = "🟢"
	case alert.Signal != nil && alert.Signal.Type == model.SignalTypeSell:
		marker = "🔴"
	case alert.Level == AlertWarning:
		marker = "⚠️"
	case alert.Level == AlertCritical:
		marker = "🚨"
	}
	if alert.Level == AlertWarning && alert.Signal != nil {
		marker += "⭐"
	}
	return marker + " *" + escapeMarkdown(alert.Title) + "*\n\n" + escapeMarkdown(alert.Message)
}

const markdownV2Specials = "_*[]()~`>#+-=|{}.!\\"

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
