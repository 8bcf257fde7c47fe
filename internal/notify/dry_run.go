package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/report"
)

// DryRunNotifier logs reports without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, r report.Report) error {
	channel := fmt.Sprintf("%T", n.inner)
	for _, res := range r.Results {
		n.logger.Info().
			Str("channel", channel).
			Str("check", res.Name).
			Str("status", string(res.Status())).
			Str("detail", res.Detail).
			Msg("[DRY-RUN] Would notify")
	}
	return nil
}
