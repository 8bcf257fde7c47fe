// Package healthcheck tracks watchdog liveness so the watchdog itself can be probed.
package healthcheck

import (
	"sync"
	"time"

	"github.com/hazz-dev/ewwatch/internal/report"
)

// Snapshot describes the latest cycle.
type Snapshot struct {
	LastCycleTime   *time.Time `json:"last_cycle_time"`
	CycleDurationMS int64      `json:"cycle_duration_ms"`
	ChecksRun       int        `json:"checks_run"`
	Cycles          int64      `json:"cycles"`
	LastHealthy     *bool      `json:"last_healthy"`
	Verdict         string     `json:"verdict,omitempty"`
	Failing         []string   `json:"failing,omitempty"`
}

// Tracker records cycle timing and the latest report.
type Tracker struct {
	mu            sync.RWMutex
	lastCycle     time.Time
	cycleDuration time.Duration
	cycles        int64
	latest        report.Report
	ready         bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordCycle stores r and marks the tracker ready.
func (t *Tracker) RecordCycle(r report.Report, duration time.Duration) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	t.mu.Lock()
	t.lastCycle = now
	t.cycleDuration = duration
	t.cycles++
	t.latest = r
	t.ready = true
	t.mu.Unlock()
}

// Latest returns the most recent report, if any cycle has completed.
func (t *Tracker) Latest() (report.Report, bool) {
	if t == nil {
		return report.Report{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.ready
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		CycleDurationMS: int64(t.cycleDuration / time.Millisecond),
		ChecksRun:       len(t.latest.Results),
		Cycles:          t.cycles,
	}
	if !t.lastCycle.IsZero() {
		last := t.lastCycle
		healthy := t.latest.Healthy
		s.LastCycleTime = &last
		s.LastHealthy = &healthy
		s.Verdict = t.latest.Verdict()
		for _, res := range t.latest.Failing() {
			s.Failing = append(s.Failing, res.Name)
		}
	}
	return s
}

// Ready reports whether at least one cycle has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last cycle completed within 2x the interval.
// It describes the watchdog, not Earthworm: a failing report still counts.
func (t *Tracker) Healthy(now time.Time, interval time.Duration) bool {
	if t == nil || interval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastCycle.IsZero() {
		return false
	}
	return now.Sub(t.lastCycle) <= 2*interval
}
