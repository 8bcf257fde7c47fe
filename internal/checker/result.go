package checker

import "time"

// Status is the printable outcome of a check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// CheckResult is the outcome of a single probe. It is never modified after
// the probe returns it.
type CheckResult struct {
	Name      string
	Healthy   bool
	Detail    string
	CheckedAt time.Time
	Duration  time.Duration
}

// Status maps Healthy to a Status.
func (r CheckResult) Status() Status {
	if r.Healthy {
		return StatusPass
	}
	return StatusFail
}
