package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

// telegramMaxLen is the Bot API message size limit, minus room for the
// subject line and the truncation marker.
const telegramMaxLen = 3900

// TelegramSender delivers the report via the Telegram Bot API. Long reports
// are truncated; mail carries the full text.
type TelegramSender struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the report to the configured chat using the sendMessage API.
// The fixed-width report tables survive as plain text; no parse mode is set
// so tickers with underscores don't break formatting.
func (t *TelegramSender) Send(ctx context.Context, subject, body string) error {
	if len(body) > telegramMaxLen {
		// Back up to a rune boundary; a split multibyte character is
		// invalid UTF-8 and the Bot API rejects the whole message.
		cut := telegramMaxLen
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "\n… truncated, full report in mail"
	}
	text := subject + "\n\n" + body

	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
