package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BigWin 封装大额赢局推送上下文。
type BigWin struct {
	Signature string
	User      string
	GameName  string
	Profit    decimal.Decimal
	Jackpot   decimal.Decimal
	Symbol    string
	PlayedAt  time.Time
	Channels  []string
}

// Notifier 定义推送接口。
type Notifier interface {
	Notify(ctx context.Context, win BigWin) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 推送器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "relay_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, win BigWin) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(win),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("signature", win.Signature).
		Str("game", win.GameName).
		Str("channels", strings.Join(win.Channels, ",")).
		Msg("大额赢局已推送 (Telegram)")
	return nil
}

func renderMessage(win BigWin) string {
	builder := strings.Builder{}
	builder.WriteString("[Big Win]\n")
	builder.WriteString(fmt.Sprintf("User: ...%s\n", win.User))
	builder.WriteString(fmt.Sprintf("Game: %s\n", win.GameName))
	builder.WriteString(fmt.Sprintf("Profit: %s %s\n", win.Profit.StringFixed(4), win.Symbol))
	if win.Jackpot.IsPositive() {
		builder.WriteString(fmt.Sprintf("Jackpot: %s %s\n", win.Jackpot.StringFixed(4), win.Symbol))
	}
	builder.WriteString(fmt.Sprintf("Settled: %s UTC\n", win.PlayedAt.UTC().Format(time.RFC3339)))
	if len(win.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(win.Channels, ",")))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
