package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type TelegramNotifier struct {
	enabled  bool
	botToken string
	chatID   string
	client   *resty.Client
}

func NewTelegramNotifier(enabled bool, botToken, chatID, baseURL string, timeout time.Duration) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		enabled:  enabled,
		botToken: botToken,
		chatID:   chatID,
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
	}
}

func (t *TelegramNotifier) Notify(ctx context.Context, msg string) error {
	if t == nil || !t.enabled {
		return nil
	}
	var parsed telegramSendMessageResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(telegramSendMessageRequest{ChatID: t.chatID, Text: msg}).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/bot" + t.botToken + "/sendMessage")
	if err != nil {
		return err
	}
	if resp.IsError() {
		desc := strings.TrimSpace(parsed.Description)
		if desc == "" {
			desc = strings.TrimSpace(string(resp.Body()))
		}
		return fmt.Errorf("telegram status=%d: %s", resp.StatusCode(), desc)
	}
	if strings.Contains(resp.Header().Get("Content-Type"), "json") && len(resp.Body()) > 0 && !parsed.OK {
		return fmt.Errorf("telegram api error: %s", strings.TrimSpace(parsed.Description))
	}
	return nil
}

type telegramSendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramSendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}
