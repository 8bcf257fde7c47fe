package healthcheck

import (
	"encoding/json"
	"net/http"
	"time"
)

// Watchdog states reported by the liveness endpoints.
const (
	StatusStarting = "starting"
	StatusAlive    = "alive"
	StatusStale    = "stale"
	StatusReady    = "ready"
)

// statusBody is the liveness payload: the watchdog state plus the verdict of
// the last Earthworm report, so a probe of the watchdog also shows node health.
type statusBody struct {
	Status string `json:"status"`
	Snapshot
}

// HealthHandler serves /healthz. It answers 200 while cycles keep completing
// within twice the interval, whatever the last verdict was.
func HealthHandler(tracker *Tracker, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := statusBody{Status: StatusStarting, Snapshot: tracker.Snapshot()}
		code := http.StatusServiceUnavailable
		switch {
		case tracker.Healthy(time.Now().UTC(), interval):
			body.Status = StatusAlive
			code = http.StatusOK
		case tracker.Ready():
			body.Status = StatusStale
		}
		writeJSON(w, code, body)
	}
}

// ReadyHandler serves /readyz: 503 until the first cycle completes.
func ReadyHandler(tracker *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := statusBody{Status: StatusStarting, Snapshot: tracker.Snapshot()}
		code := http.StatusServiceUnavailable
		if tracker.Ready() {
			body.Status = StatusReady
			code = http.StatusOK
		}
		writeJSON(w, code, body)
	}
}

func writeJSON(w http.ResponseWriter, code int, body statusBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
