// Package report merges probe results into one health verdict and renders it
// for operators and notification channels.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hazz-dev/ewwatch/internal/checker"
)

// TimeLayout is used for report headers.
const TimeLayout = "2006-01-02 15:04:05 MST"

// Report is the outcome of one health check cycle.
type Report struct {
	Timestamp time.Time
	Healthy   bool
	Results   []checker.CheckResult
}

// New builds a report from results in the order given. Healthy is the logical
// AND of every result; a report with no results is healthy.
func New(ts time.Time, results ...checker.CheckResult) Report {
	r := Report{
		Timestamp: ts,
		Healthy:   true,
		Results:   append([]checker.CheckResult(nil), results...),
	}
	for _, res := range r.Results {
		if !res.Healthy {
			r.Healthy = false
		}
	}
	return r
}

// Failing returns the unhealthy results.
func (r Report) Failing() []checker.CheckResult {
	var out []checker.CheckResult
	for _, res := range r.Results {
		if !res.Healthy {
			out = append(out, res)
		}
	}
	return out
}

// Verdict is "OK" or "FAILING".
func (r Report) Verdict() string {
	if r.Healthy {
		return "OK"
	}
	return "FAILING"
}

// Summary is a one-line description of the report.
func (r Report) Summary() string {
	if r.Healthy {
		return fmt.Sprintf("Earthworm health OK: %d/%d checks passing", len(r.Results), len(r.Results))
	}
	names := make([]string, 0, len(r.Results))
	for _, res := range r.Failing() {
		names = append(names, res.Name)
	}
	return fmt.Sprintf("Earthworm health FAILING: %s", strings.Join(names, ", "))
}

// Format renders the multi-line report. Failure details are indented beneath
// the failing check.
func (r Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Earthworm health: %s (%s)\n", r.Verdict(), r.Timestamp.Format(TimeLayout))
	for _, res := range r.Results {
		fmt.Fprintf(&b, "  [%s] %s\n", strings.ToUpper(string(res.Status())), res.Name)
		if res.Healthy || res.Detail == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(res.Detail, "\n"), "\n") {
			fmt.Fprintf(&b, "      %s\n", line)
		}
	}
	return b.String()
}
