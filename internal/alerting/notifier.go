package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fraud-monitor/internal/record"
)

// Notification carries the alert context for one high-risk record.
type Notification struct {
	RecordID   *int64
	Amount     decimal.Decimal
	Score      float64
	Risk       record.Risk
	CreatedAt  string
	IPAddress  string
	Email      string
	Channels   []string
	ObservedAt time.Time
	HighRisk   int
	Total      int
}

// NewNotification builds a notification for rec with the lifetime totals at admit time.
func NewNotification(rec record.FraudRecord, highRisk, total int, observedAt time.Time, channels []string) Notification {
	return Notification{
		RecordID:   rec.ID,
		Amount:     rec.Amount,
		Score:      rec.Score,
		Risk:       rec.Risk,
		CreatedAt:  rec.CreatedAt,
		IPAddress:  rec.IPAddress,
		Email:      rec.Email,
		Channels:   channels,
		ObservedAt: observedAt,
		HighRisk:   highRisk,
		Total:      total,
	}
}

// Notifier delivers a notification to one channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Notifiers delivers to every channel and joins the failures.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log-only notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	event := n.logger.Warn().
		Str("amount", note.Amount.String()).
		Float64("score", note.Score).
		Int("high_risk_total", note.HighRisk)
	if note.RecordID != nil {
		event = event.Int64("record_id", *note.RecordID)
	}
	event.Msg("high-risk transaction")
	return nil
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
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

// Notify calls sendMessage with the rendered alert text.
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
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false: %s", result.Description)
	}

	n.logger.Info().Float64("score", note.Score).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Fraud Alert] HIGH risk transaction\n")
	if note.RecordID != nil {
		builder.WriteString(fmt.Sprintf("ID: %d\n", *note.RecordID))
	}
	builder.WriteString(fmt.Sprintf("Amount: %s\n", note.Amount.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Score: %.4f\n", note.Score))
	if note.CreatedAt != "" {
		builder.WriteString(fmt.Sprintf("Created: %s\n", note.CreatedAt))
	}
	if note.IPAddress != "" {
		builder.WriteString(fmt.Sprintf("IP: %s\n", note.IPAddress))
	}
	if note.Email != "" {
		builder.WriteString(fmt.Sprintf("Email: %s\n", note.Email))
	}
	builder.WriteString(fmt.Sprintf("High risk so far: %d of %d\n", note.HighRisk, note.Total))
	if !note.ObservedAt.IsZero() {
		builder.WriteString(fmt.Sprintf("Observed: %s UTC\n", note.ObservedAt.UTC().Format(time.RFC3339)))
	}
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Notifiers(nil)
)
