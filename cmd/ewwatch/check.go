package main

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/config"
)

var errUnhealthy = errors.New("one or more checks failed")

// executeCheck runs a single cycle, printing the report to out. The report
// is dispatched under the configured policy like any scheduled cycle.
func executeCheck(ctx context.Context, out io.Writer, cfg *config.Config, logger zerolog.Logger) error {
	a, err := newApp(cfg, logger, out)
	if err != nil {
		return err
	}
	defer a.Close()

	if r := a.scheduler.RunOnce(ctx); !r.Healthy {
		return errUnhealthy
	}
	return nil
}
