// Package scheduler runs the probe cycle: collect every signal in order,
// aggregate a report, emit it and hand it to the notifier.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/config"
	"github.com/hazz-dev/ewwatch/internal/healthcheck"
	"github.com/hazz-dev/ewwatch/internal/metrics"
	"github.com/hazz-dev/ewwatch/internal/notify"
	"github.com/hazz-dev/ewwatch/internal/report"
)

// State is the lifecycle state of a Scheduler.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Store persists completed reports.
type Store interface {
	InsertReport(ctx context.Context, r report.Report) error
}

// WaitFunc blocks for d or until ctx is done, returning ctx.Err() in the latter case.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the pause between cycles.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithWait replaces the inter-cycle wait.
func WithWait(fn WaitFunc) Option {
	return func(s *Scheduler) { s.wait = fn }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithDispatcher sets the notification dispatcher.
func WithDispatcher(d *notify.Dispatcher) Option {
	return func(s *Scheduler) { s.dispatcher = d }
}

// WithStore enables report history.
func WithStore(st Store) Option {
	return func(s *Scheduler) { s.store = st }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracker records each cycle for the liveness endpoints.
func WithTracker(t *healthcheck.Tracker) Option {
	return func(s *Scheduler) { s.tracker = t }
}

// WithOutput prints every report to w.
func WithOutput(w io.Writer) Option {
	return func(s *Scheduler) { s.out = w }
}

// WithOnReport sets a callback invoked after each completed cycle.
func WithOnReport(fn func(report.Report)) Option {
	return func(s *Scheduler) { s.onReport = fn }
}

// Scheduler runs checkers sequentially on a fixed interval.
type Scheduler struct {
	checkers   []checker.Checker
	interval   time.Duration
	wait       WaitFunc
	logger     zerolog.Logger
	dispatcher *notify.Dispatcher
	store      Store
	metrics    *metrics.Metrics
	tracker    *healthcheck.Tracker
	out        io.Writer
	onReport   func(report.Report)
	now        func() time.Time
	state      atomic.Int32
}

// New creates a Scheduler for checkers, which run in the order given.
func New(checkers []checker.Checker, opts ...Option) *Scheduler {
	s := &Scheduler{
		checkers: checkers,
		interval: config.DefaultInterval,
		wait:     sleep,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports whether Run is active.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run executes cycles until ctx is cancelled. The first cycle starts immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		return fmt.Errorf("scheduler already running")
	}
	defer s.state.Store(int32(Stopped))

	s.logger.Info().
		Dur("interval", s.interval).
		Int("checks", len(s.checkers)).
		Msg("scheduler started")

	for {
		s.RunOnce(ctx)
		if err := s.wait(ctx, s.interval); err != nil {
			s.logger.Info().Msg("scheduler stopped")
			return nil
		}
	}
}

// RunOnce performs one cycle and returns its report. A cycle interrupted by
// ctx is returned but neither emitted nor dispatched.
func (s *Scheduler) RunOnce(ctx context.Context) report.Report {
	start := s.now()
	results := make([]checker.CheckResult, 0, len(s.checkers))
	for _, c := range s.checkers {
		if ctx.Err() != nil {
			break
		}
		res := c.Check(ctx)
		s.logger.Debug().
			Str("check", res.Name).
			Bool("healthy", res.Healthy).
			Dur("duration", res.Duration).
			Str("detail", res.Detail).
			Msg("check result")
		results = append(results, res)
	}
	r := report.New(start, results...)
	elapsed := s.now().Sub(start)

	if ctx.Err() != nil {
		s.logger.Warn().Int("completed", len(results)).Msg("cycle cancelled; report discarded")
		return r
	}

	s.logger.Info().
		Bool("healthy", r.Healthy).
		Dur("duration", elapsed).
		Msg(r.Summary())

	if s.out != nil {
		fmt.Fprint(s.out, r.Format())
	}
	if s.store != nil {
		if err := s.store.InsertReport(ctx, r); err != nil {
			s.logger.Warn().Err(err).Msg("storing report")
		}
	}
	s.metrics.ObserveReport(r, elapsed)
	s.tracker.RecordCycle(r, elapsed)
	s.dispatcher.Dispatch(ctx, r)
	if s.onReport != nil {
		s.onReport(r)
	}
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
