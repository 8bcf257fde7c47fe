package notify

import (
	"context"
	"fmt"

	"github.com/hazz-dev/ewwatch/internal/report"
)

// Notifier delivers a health report to an external channel.
type Notifier interface {
	Notify(ctx context.Context, r report.Report) error
}

// DeliveryError is returned when a channel rejects or cannot receive a message.
type DeliveryError struct {
	Channel    string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failed (status %d): %v", e.Channel, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
