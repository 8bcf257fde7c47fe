package notify

import (
	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/config"
)

// New assembles the configured channels into a single Notifier.
func New(cfg config.Notify, logger zerolog.Logger) (Notifier, error) {
	var notifiers []Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		notifiers = append(notifiers, NewTelegramNotifier(logger.With().Str("channel", "telegram").Logger(), cfg.Telegram))
	}
	if cfg.Slack.WebhookURL != "" {
		notifiers = append(notifiers, NewSlackNotifier(logger.With().Str("channel", "slack").Logger(), cfg.Slack.WebhookURL))
	}
	if cfg.Webhook.URL != "" {
		wh, err := NewWebhookNotifier(logger.With().Str("channel", "webhook").Logger(), cfg.Webhook.URL, cfg.Webhook.Template)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, wh)
	}

	var n Notifier
	switch len(notifiers) {
	case 0:
		n = NewNoop(logger, "no notification channel configured")
	case 1:
		n = notifiers[0]
	default:
		n = NewMultiNotifier(notifiers...)
	}

	if cfg.DryRun {
		n = NewDryRunNotifier(logger, n)
	}
	return n, nil
}
