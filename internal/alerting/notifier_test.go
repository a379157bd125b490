package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testWin() BigWin {
	return BigWin{
		Signature: "5sig",
		User:      "Ab3xy",
		GameName:  "Dice",
		Profit:    decimal.RequireFromString("12.5"),
		Jackpot:   decimal.Zero,
		Symbol:    "SOL",
		PlayedAt:  time.Unix(1_700_000_000, 0),
		Channels:  []string{"discord", "telegram"},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), testWin()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "Big Win") || !strings.Contains(received["text"], "Dice") {
		t.Fatalf("消息内容不完整: %s", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), testWin()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestRenderMessageIncludesJackpotOnlyWhenPositive(t *testing.T) {
	win := testWin()
	if strings.Contains(renderMessage(win), "Jackpot") {
		t.Fatal("无奖池时不应渲染 Jackpot 行")
	}

	win.Jackpot = decimal.NewFromInt(3)
	text := renderMessage(win)
	if !strings.Contains(text, "Jackpot: 3.0000 SOL") {
		t.Fatalf("奖池行缺失: %s", text)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
