package alerts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dual-dex-bot/internal/config"
	"dual-dex-bot/internal/httpx"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const telegramBaseURL = "https://api.telegram.org"

// Telegram posts operator alerts to one chat. Bursts beyond one message per
// second (five in a row) are dropped and logged instead.
type Telegram struct {
	enabled   bool
	token     string
	chatID    string
	baseURL   string
	requester *httpx.Requester
	budget    *rate.Limiter
	log       *zap.Logger
}

func NewTelegram(cfg config.TelegramConfig, httpClient *http.Client, log *zap.Logger) *Telegram {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return newTelegram(cfg, log, telegramBaseURL, httpClient)
}

func newTelegram(cfg config.TelegramConfig, log *zap.Logger, baseURL string, client *http.Client) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{
		enabled:   cfg.Enabled,
		token:     strings.TrimSpace(cfg.Token),
		chatID:    strings.TrimSpace(cfg.ChatID),
		baseURL:   strings.TrimRight(baseURL, "/"),
		requester: &httpx.Requester{HTTP: client},
		budget:    rate.NewLimiter(rate.Every(time.Second), 5),
		log:       log,
	}
}

func (t *Telegram) Send(ctx context.Context, message string) error {
	if t == nil || !t.enabled {
		return nil
	}
	if t.token == "" || t.chatID == "" {
		return errors.New("telegram token and chat_id are required")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("telegram message is empty")
	}
	if !t.budget.Allow() {
		t.log.Warn("telegram alert dropped", zap.String("message", message))
		return nil
	}
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    message,
	}
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	if err := t.requester.Do(ctx, http.MethodPost, url, payload, &result); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	if !result.OK {
		desc := strings.TrimSpace(result.Description)
		if desc == "" {
			desc = "unknown telegram error"
		}
		return fmt.Errorf("telegram send failed: %s", desc)
	}
	return nil
}
