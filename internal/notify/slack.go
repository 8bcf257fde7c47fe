package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/hazz-dev/ewwatch/internal/report"
)

// SlackNotifier posts reports to a Slack incoming webhook.
type SlackNotifier struct {
	logger zerolog.Logger
	poster *httpPoster
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; notifications disabled")
	}
	return &SlackNotifier{
		logger: logger,
		poster: newHTTPPoster(logger, "slack", webhookURL, "application/json", defaultTiming),
	}
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, r report.Report) error {
	payload, err := json.Marshal(buildSlackMessage(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if _, err := n.poster.post(ctx, payload); err != nil {
		return err
	}
	n.logger.Debug().Bool("healthy", r.Healthy).Msg("slack notification sent")
	return nil
}

func buildSlackMessage(r report.Report) slack.WebhookMessage {
	summary := fmt.Sprintf("Earthworm health: %s", r.Verdict())
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))
	ctxBlock := slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", r.Timestamp.Format(report.TimeLayout), false, false),
	)

	blocks := []slack.Block{header, ctxBlock}
	for _, res := range r.Results {
		title := fmt.Sprintf("*%s* `%s`", res.Name, statusLabel(res.Healthy))
		if !res.Healthy && res.Detail != "" {
			title += "\n```" + res.Detail + "```"
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", title, false, false), nil, nil))
	}

	return slack.WebhookMessage{
		Text:   r.Summary(),
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func statusLabel(healthy bool) string {
	if healthy {
		return "PASS"
	}
	return "FAIL"
}
