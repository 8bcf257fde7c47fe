package notify

import (
	"context"
	"errors"
	"time"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/report"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func healthyReport() report.Report {
	return report.New(testTime,
		checker.CheckResult{Name: checker.NameConnection, Healthy: true},
		checker.CheckResult{Name: checker.NameDataFlow, Healthy: true},
		checker.CheckResult{Name: checker.NameLog, Healthy: true},
	)
}

func failingReport(detail string) report.Report {
	return report.New(testTime,
		checker.CheckResult{Name: checker.NameConnection, Healthy: true},
		checker.CheckResult{Name: checker.NameDataFlow, Healthy: true},
		checker.CheckResult{Name: checker.NameLog, Healthy: false, Detail: detail},
	)
}

type countingNotifier struct {
	calls int
	last  report.Report
	err   error
}

func (n *countingNotifier) Notify(_ context.Context, r report.Report) error {
	n.calls++
	n.last = r
	return n.err
}

var errDelivery = errors.New("boom")
