package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/hazz-dev/ewwatch/internal/config"
)

// Sample is the raw output captured during one sampling window.
type Sample struct {
	Output  []byte
	Stderr  []byte
	Elapsed time.Duration
}

// Sampler runs the sniff utility against a ring for at most window.
// An error means the utility could not run, not that the ring was empty.
type Sampler interface {
	Sample(ctx context.Context, ring string, window time.Duration) (Sample, error)
}

type dataFlowChecker struct {
	cfg     config.DataFlow
	sampler Sampler
}

// NewDataFlow returns the data-flow checker backed by the configured sniff command.
func NewDataFlow(cfg config.DataFlow) Checker {
	return &dataFlowChecker{
		cfg:     cfg,
		sampler: &osSampler{command: cfg.Command, args: cfg.Args, env: cfg.Env},
	}
}

// NewDataFlowCheckerWithSampler creates a data-flow checker with a custom sampler (for testing).
func NewDataFlowCheckerWithSampler(cfg config.DataFlow, sampler Sampler) Checker {
	return &dataFlowChecker{cfg: cfg, sampler: sampler}
}

func (c *dataFlowChecker) Name() string { return NameDataFlow }

func (c *dataFlowChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      NameDataFlow,
		CheckedAt: start,
	}
	window := c.cfg.Window.Duration

	sample, err := c.sampler.Sample(ctx, c.cfg.Ring, window)
	result.Duration = time.Since(start)
	if err != nil {
		result.Detail = execFailure(c.cfg.Command, err, sample.Stderr)
		return result
	}

	summary := ParseSniff(sample.Output)
	switch {
	case len(summary.Errors) > 0:
		result.Detail = fmt.Sprintf("%s reported an error: %s", c.cfg.Ring, summary.Errors[0])
	case summary.Records == 0:
		result.Detail = fmt.Sprintf("no data observed in %s on %s", window, c.cfg.Ring)
	default:
		observed := window
		if sample.Elapsed > 0 {
			observed = sample.Elapsed.Round(10 * time.Millisecond)
		}
		result.Healthy = true
		result.Detail = fmt.Sprintf("%d record(s) observed on %s in %s\nlast: %s",
			summary.Records, c.cfg.Ring, observed, summary.LastRecord)
	}
	return result
}
