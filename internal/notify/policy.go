package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/report"
)

// Policy decides which reports leave the process.
type Policy struct {
	Enabled        bool
	ReportGoodNews bool
}

// ShouldSend is true for unhealthy reports, and for healthy ones only when
// good news is wanted. Nothing is sent while notifications are disabled.
func (p Policy) ShouldSend(r report.Report) bool {
	if !p.Enabled {
		return false
	}
	return !r.Healthy || p.ReportGoodNews
}

// Recorder observes delivery outcomes.
type Recorder interface {
	ObserveDelivery(delivered bool)
}

// Dispatcher applies a Policy in front of a Notifier. Delivery failures are
// logged and swallowed so the next cycle always runs.
type Dispatcher struct {
	notifier Notifier
	policy   Policy
	logger   zerolog.Logger
	recorder Recorder
}

// NewDispatcher creates a Dispatcher. recorder may be nil.
func NewDispatcher(notifier Notifier, policy Policy, logger zerolog.Logger, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		policy:   policy,
		logger:   logger,
		recorder: recorder,
	}
}

// Dispatch sends r at most once. It reports whether the report was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, r report.Report) bool {
	if d == nil || d.notifier == nil || !d.policy.ShouldSend(r) {
		return false
	}

	if err := d.notifier.Notify(ctx, r); err != nil {
		d.logger.Error().Err(err).Bool("healthy", r.Healthy).Msg("notification delivery failed")
		d.observe(false)
		return false
	}

	d.logger.Info().Bool("healthy", r.Healthy).Msg("notification sent")
	d.observe(true)
	return true
}

func (d *Dispatcher) observe(delivered bool) {
	if d.recorder != nil {
		d.recorder.ObserveDelivery(delivered)
	}
}
