package notify

import (
	"context"

	"github.com/hazz-dev/ewwatch/internal/report"
)

// MultiNotifier fans out notifications to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that dispatches to all provided notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	filtered := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier == nil {
			continue
		}
		filtered = append(filtered, notifier)
	}
	return &MultiNotifier{notifiers: filtered}
}

// Notify implements Notifier. Every channel is attempted; the first error is returned.
func (m *MultiNotifier) Notify(ctx context.Context, r report.Report) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
