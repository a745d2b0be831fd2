package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dual-dex-bot/internal/config"

	"go.uber.org/zap"
)

func TestTelegramSendDisabled(t *testing.T) {
	cfg := config.TelegramConfig{Enabled: false}
	client := newTelegram(cfg, zap.NewNop(), "http://unused", nil)
	if err := client.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
	var nilClient *Telegram
	if err := nilClient.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("expected nil notifier to be a no-op, got %v", err)
	}
}

func TestTelegramSendMissingConfig(t *testing.T) {
	cfg := config.TelegramConfig{Enabled: true}
	client := newTelegram(cfg, zap.NewNop(), "http://unused", nil)
	if err := client.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for missing token/chat_id")
	}
}

func TestTelegramSendPostsMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	cfg := config.TelegramConfig{Enabled: true, Token: "token", ChatID: "123"}
	client := newTelegram(cfg, zap.NewNop(), server.URL, server.Client())
	if err := client.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("expected send success, got %v", err)
	}
	if gotPath != "/bottoken/sendMessage" {
		t.Fatalf("expected path /bottoken/sendMessage, got %s", gotPath)
	}
	if gotPayload["chat_id"] != "123" || gotPayload["text"] != "hello" {
		t.Fatalf("unexpected payload: %v", gotPayload)
	}
}

func TestTelegramSendReportsAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	cfg := config.TelegramConfig{Enabled: true, Token: "token", ChatID: "123"}
	client := newTelegram(cfg, zap.NewNop(), server.URL, server.Client())
	err := client.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API failure, got %v", err)
	}
}

func TestTelegramDropsBursts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := config.TelegramConfig{Enabled: true, Token: "token", ChatID: "123"}
	client := newTelegram(cfg, zap.NewNop(), server.URL, server.Client())
	for i := 0; i < 8; i++ {
		if err := client.Send(context.Background(), "burst"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if calls != 5 {
		t.Fatalf("expected 5 delivered alerts, got %d", calls)
	}
}

func TestMessages(t *testing.T) {
	msg := CloseUnresolved("pacifica", "BTC", "gave_up", 2, 0.004)
	if !strings.Contains(msg, "gave_up on pacifica BTC after 2 order(s), residual 0.004") {
		t.Fatalf("unexpected close alert: %s", msg)
	}
	msg = PartialFill("c-7", "ETH", "hyperliquid", "pacifica", errors.New("order rejected"))
	if !strings.Contains(msg, "pacifica open failed (order rejected), compensating close on hyperliquid") {
		t.Fatalf("unexpected partial fill alert: %s", msg)
	}
	if got := SweepSummary(nil, nil); !strings.Contains(got, "no open positions") {
		t.Fatalf("unexpected empty sweep summary: %s", got)
	}
	got := SweepSummary([]string{"hyperliquid/BTC"}, []string{"pacifica/ETH"})
	if got != "[dual-dex-bot] startup sweep: closed hyperliquid/BTC. unresolved pacifica/ETH." {
		t.Fatalf("unexpected sweep summary: %s", got)
	}
}
