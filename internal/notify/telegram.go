package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/config"
	"github.com/hazz-dev/ewwatch/internal/report"
)

// telegramMaxText is the Bot API limit for a single message.
const telegramMaxText = 4096

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// TelegramNotifier posts the formatted report to a chat through the Bot API.
type TelegramNotifier struct {
	logger zerolog.Logger
	chatID string
	token  string
	poster *httpPoster
}

// TelegramOption customizes TelegramNotifier behavior.
type TelegramOption func(*telegramSettings)

type telegramSettings struct {
	timing timingConfig
}

// WithTelegramTiming overrides the request timeout and rate limit.
func WithTelegramTiming(timeout, rateInterval time.Duration, rateBurst int) TelegramOption {
	return func(s *telegramSettings) {
		s.timing = timingConfig{timeout: timeout, rateInterval: rateInterval, rateBurst: rateBurst}
	}
}

// NewTelegramNotifier creates a notifier for cfg, or a noop notifier when
// the token or chat id is missing.
func NewTelegramNotifier(logger zerolog.Logger, cfg config.Telegram, opts ...TelegramOption) Notifier {
	if cfg.Token == "" || cfg.ChatID == "" {
		return NewNoop(logger, "telegram credentials not configured; notifications disabled")
	}
	settings := telegramSettings{timing: defaultTiming}
	for _, opt := range opts {
		opt(&settings)
	}

	base := strings.TrimRight(cfg.APIURL, "/")
	if base == "" {
		base = config.DefaultTelegramAPIURL
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, cfg.Token)

	return &TelegramNotifier{
		logger: logger,
		chatID: cfg.ChatID,
		token:  cfg.Token,
		poster: newHTTPPoster(logger, "telegram", url, "application/json", settings.timing),
	}
}

// Notify implements Notifier.
func (n *TelegramNotifier) Notify(ctx context.Context, r report.Report) error {
	payload, err := json.Marshal(telegramMessage{
		ChatID:                n.chatID,
		Text:                  truncateText(r.Format(), telegramMaxText),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	body, err := n.poster.post(ctx, payload)
	if err != nil {
		return n.redact(describeTelegramError(err, body))
	}

	var resp telegramResponse
	if err := json.Unmarshal(body, &resp); err == nil && !resp.OK {
		return &DeliveryError{
			Channel:    "telegram",
			StatusCode: resp.ErrorCode,
			Err:        errors.New(resp.Description),
		}
	}

	n.logger.Debug().Str("chat_id", n.chatID).Bool("healthy", r.Healthy).Msg("telegram notification sent")
	return nil
}

// describeTelegramError prefers the Bot API description over the raw body.
func describeTelegramError(err error, body []byte) error {
	var de *DeliveryError
	if !errors.As(err, &de) || len(body) == 0 {
		return err
	}
	var resp telegramResponse
	if json.Unmarshal(body, &resp) != nil || resp.Description == "" {
		return err
	}
	return &DeliveryError{Channel: de.Channel, StatusCode: de.StatusCode, Err: errors.New(resp.Description)}
}

// redact keeps the bot token, which is part of the request URL, out of errors.
func (n *TelegramNotifier) redact(err error) error {
	if err == nil || !strings.Contains(err.Error(), n.token) {
		return err
	}
	var de *DeliveryError
	msg := strings.ReplaceAll(err.Error(), n.token, "<redacted>")
	if errors.As(err, &de) {
		inner := strings.ReplaceAll(de.Err.Error(), n.token, "<redacted>")
		return &DeliveryError{Channel: de.Channel, StatusCode: de.StatusCode, Err: errors.New(inner)}
	}
	return errors.New(msg)
}

// truncateText cuts s to at most n runes.
func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
