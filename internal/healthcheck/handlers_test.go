package healthcheck

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/report"
)

func failing() report.Report {
	return report.New(time.Now(), checker.CheckResult{Name: checker.NameLog, Detail: "timeout"})
}

func TestHealthHandlerHealthy(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCycle(failing(), 150*time.Millisecond)

	rec := httptest.NewRecorder()
	HealthHandler(tracker, 5*time.Second)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even for a failing report, got %d", rec.Code)
	}

	var payload statusBody
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != StatusAlive {
		t.Fatalf("expected status alive, got %q", payload.Status)
	}
	if payload.Verdict != "FAILING" || len(payload.Failing) != 1 || payload.Failing[0] != checker.NameLog {
		t.Fatalf("expected failing log verdict, got %q %v", payload.Verdict, payload.Failing)
	}
	if payload.LastCycleTime == nil {
		t.Fatalf("expected last cycle time to be set")
	}
	if payload.LastHealthy == nil || *payload.LastHealthy {
		t.Fatalf("expected last_healthy false, got %v", payload.LastHealthy)
	}
	if payload.CycleDurationMS != 150 || payload.ChecksRun != 1 || payload.Cycles != 1 {
		t.Fatalf("unexpected snapshot: %+v", payload)
	}
}

func TestHealthHandlerUnhealthyWhenStale(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCycle(failing(), 10*time.Millisecond)
	tracker.lastCycle = time.Now().Add(-10 * time.Second)

	rec := httptest.NewRecorder()
	HealthHandler(tracker, 3*time.Second)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var payload statusBody
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != StatusStale {
		t.Fatalf("expected status stale, got %q", payload.Status)
	}
}

func TestHealthHandlerStarting(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(NewTracker(), time.Minute)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first cycle, got %d", rec.Code)
	}
	var payload statusBody
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != StatusStarting || payload.Verdict != "" || payload.LastHealthy != nil {
		t.Fatalf("unexpected payload before the first cycle: %+v", payload)
	}
}

func TestReadyHandler(t *testing.T) {
	tracker := NewTracker()
	handler := ReadyHandler(tracker)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", rec.Code)
	}

	tracker.RecordCycle(report.New(time.Now()), 5*time.Millisecond)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after ready, got %d", rec.Code)
	}
}

func TestTrackerLatest(t *testing.T) {
	tracker := NewTracker()
	if _, ok := tracker.Latest(); ok {
		t.Fatal("expected no report before the first cycle")
	}
	tracker.RecordCycle(failing(), time.Millisecond)
	r, ok := tracker.Latest()
	if !ok || r.Healthy || len(r.Results) != 1 {
		t.Fatalf("unexpected latest report: %+v %v", r, ok)
	}

	var nilTracker *Tracker
	if nilTracker.Ready() || nilTracker.Healthy(time.Now(), time.Second) {
		t.Fatal("nil tracker must be neither ready nor healthy")
	}
}
