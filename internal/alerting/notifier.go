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
)

// Notification carries the context of a published score that crossed the
// configured threshold.
type Notification struct {
	Symbol       string
	Value        float64
	Encoded      int64
	Threshold    float64
	Direction    string
	SampleCount  int
	BullishCount int
	BearishCount int
	TxHash       string
	ExplorerURL  string
	PublishedAt  time.Time
}

// Notifier delivers threshold notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
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
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered message via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
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
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("symbol", note.Symbol).
		Str("direction", note.Direction).
		Msg("alert dispatched (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Sentiment Alert]\n")
	builder.WriteString(fmt.Sprintf("Symbol: %s\n", note.Symbol))
	builder.WriteString(fmt.Sprintf("Sentiment: %+.4f (onchain %+d, threshold %.2f)\n", note.Value, note.Encoded, note.Threshold))
	builder.WriteString(fmt.Sprintf("Direction: %s\n", note.Direction))
	builder.WriteString(fmt.Sprintf("Samples: %d (%d bullish / %d bearish)\n", note.SampleCount, note.BullishCount, note.BearishCount))
	if note.TxHash != "" {
		builder.WriteString(fmt.Sprintf("Tx: %s\n", note.TxHash))
	}
	if note.ExplorerURL != "" {
		builder.WriteString(note.ExplorerURL + "\n")
	}
	return builder.String()
}

// Direction classifies a published value against zero.
func Direction(value float64) string {
	switch {
	case value > 0:
		return "bullish"
	case value < 0:
		return "bearish"
	default:
		return "neutral"
	}
}

var _ Notifier = (*TelegramNotifier)(nil)
