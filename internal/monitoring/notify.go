package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/voice-agent/internal/config"
)

const notifyTimeout = 10 * time.Second

// WebhookNotifier posts alerts as JSON to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: notifyTimeout}}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// Notify posts a single alert to the webhook URL.
func (w *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// TelegramNotifier sends alerts as plain chat messages through a bot.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*telegramOptions)

type telegramOptions struct {
	endpoint string
	client   tgbotapi.HTTPClient
}

// WithTelegramEndpoint overrides the Bot API endpoint format, which takes the
// token and the method name.
func WithTelegramEndpoint(endpoint string) TelegramOption {
	return func(o *telegramOptions) { o.endpoint = endpoint }
}

// NewTelegramNotifier authenticates the bot token and returns a notifier for
// chatID.
func NewTelegramNotifier(token string, chatID int64, opts ...TelegramOption) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, eris.New("monitoring: telegram token and chat id are required")
	}
	o := telegramOptions{
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: notifyTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.client)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: telegram login")
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify sends the alert text to the configured chat.
func (t *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "monitoring: telegram send")
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, FormatText(alert))); err != nil {
		return eris.Wrap(err, "monitoring: telegram send")
	}
	return nil
}

// FormatText renders an alert as a single chat line. Status messages are
// sent verbatim.
func FormatText(alert Alert) string {
	if alert.Type == AlertStatus || alert.Severity == "" {
		return alert.Message
	}
	return "[" + strings.ToUpper(alert.Severity) + "] " + alert.Message
}

// NotifiersFromConfig builds the notifiers the config enables.
func NotifiersFromConfig(cfg config.MonitoringConfig, opts ...TelegramOption) ([]Notifier, error) {
	var out []Notifier
	if cfg.WebhookURL != "" {
		out = append(out, NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramEnabled() {
		tg, err := NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, opts...)
		if err != nil {
			return out, err
		}
		out = append(out, tg)
	}
	return out, nil
}
