package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/config"
	"github.com/hazz-dev/ewwatch/internal/healthcheck"
	"github.com/hazz-dev/ewwatch/internal/metrics"
	"github.com/hazz-dev/ewwatch/internal/notify"
	"github.com/hazz-dev/ewwatch/internal/scheduler"
	"github.com/hazz-dev/ewwatch/internal/storage"
)

// app wires the configured components together.
type app struct {
	store     *storage.DB
	metrics   *metrics.Metrics
	tracker   *healthcheck.Tracker
	scheduler *scheduler.Scheduler
}

func newApp(cfg *config.Config, logger zerolog.Logger, out io.Writer) (*app, error) {
	checkers, err := checker.New(cfg.Probes)
	if err != nil {
		return nil, fmt.Errorf("creating checkers: %w", err)
	}

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	a := &app{
		metrics: metrics.New(),
		tracker: healthcheck.NewTracker(),
	}
	policy := notify.Policy{Enabled: cfg.Notify.Enabled, ReportGoodNews: cfg.Notify.ReportGoodNews}
	opts := []scheduler.Option{
		scheduler.WithInterval(cfg.Interval.Duration),
		scheduler.WithLogger(logger),
		scheduler.WithDispatcher(notify.NewDispatcher(notifier, policy, logger, a.metrics)),
		scheduler.WithMetrics(a.metrics),
		scheduler.WithTracker(a.tracker),
		scheduler.WithOutput(out),
	}

	if cfg.Storage.Path != "" {
		db, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.store = db
		opts = append(opts, scheduler.WithStore(db))
	}

	a.scheduler = scheduler.New(checkers, opts...)
	logger.Info().
		Str("address", cfg.Probes.Connection.Address).
		Str("ring", cfg.Probes.DataFlow.Ring).
		Str("log", cfg.Probes.Log.Path).
		Bool("notify", cfg.Notify.Enabled).
		Msg("config loaded")
	return a, nil
}

// Close releases the history database.
func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
