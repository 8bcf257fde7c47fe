// Package server exposes the watchdog's status over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/healthcheck"
	"github.com/hazz-dev/ewwatch/internal/metrics"
	"github.com/hazz-dev/ewwatch/internal/report"
	"github.com/hazz-dev/ewwatch/internal/storage"
)

// passRateWindow is how many recent runs per check feed the pass rate.
const passRateWindow = 100

// Store defines the history queries the server needs.
type Store interface {
	LatestReport(ctx context.Context) (*report.Report, error)
	History(ctx context.Context, limit int) ([]report.Report, error)
	PassRate(ctx context.Context, name string, last int) (float64, error)
}

// Options holds the server's collaborators. Store, Metrics and Dashboard
// may be nil.
type Options struct {
	Store     Store
	Tracker   *healthcheck.Tracker
	Metrics   *metrics.Metrics
	Dashboard http.Handler
	Interval  time.Duration
	Logger    zerolog.Logger
}

// Server holds the chi router and its dependencies.
type Server struct {
	opts   Options
	router chi.Router
	logger zerolog.Logger
}

// New creates a new Server and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		router: chi.NewRouter(),
		logger: opts.Logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/report", s.handleReport)
	r.Get("/api/history", s.handleHistory)
	r.Get("/healthz", healthcheck.HealthHandler(s.opts.Tracker, s.opts.Interval))
	r.Get("/readyz", healthcheck.ReadyHandler(s.opts.Tracker))
	r.Handle("/metrics", s.opts.Metrics.Handler())
	if s.opts.Dashboard != nil {
		r.Handle("/*", s.opts.Dashboard)
	}
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

type checkJSON struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Healthy    bool      `json:"healthy"`
	Detail     string    `json:"detail"`
	DurationMs int64     `json:"duration_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}

type reportJSON struct {
	Timestamp time.Time   `json:"timestamp"`
	Healthy   bool        `json:"healthy"`
	Verdict   string      `json:"verdict"`
	Summary   string      `json:"summary"`
	Checks    []checkJSON `json:"checks"`
}

func toJSON(r report.Report) reportJSON {
	checks := make([]checkJSON, 0, len(r.Results))
	for _, c := range r.Results {
		checks = append(checks, checkJSON{
			Name:       c.Name,
			Status:     string(c.Status()),
			Healthy:    c.Healthy,
			Detail:     c.Detail,
			DurationMs: c.Duration.Milliseconds(),
			CheckedAt:  c.CheckedAt,
		})
	}
	return reportJSON{
		Timestamp: r.Timestamp,
		Healthy:   r.Healthy,
		Verdict:   r.Verdict(),
		Summary:   r.Summary(),
		Checks:    checks,
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if latest, ok := s.opts.Tracker.Latest(); ok {
		writeJSON(w, http.StatusOK, toJSON(latest))
		return
	}
	if s.opts.Store != nil {
		latest, err := s.opts.Store.LatestReport(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("LatestReport")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if latest != nil {
			writeJSON(w, http.StatusOK, toJSON(*latest))
			return
		}
	}
	writeError(w, http.StatusNotFound, "no report yet")
}

type historyResponse struct {
	Reports   []reportJSON       `json:"reports"`
	PassRates map[string]float64 `json:"pass_rates"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, storage.ErrNoStore.Error())
		return
	}

	const maxLimit = 1000
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	reports, err := s.opts.Store.History(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("History")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := historyResponse{
		Reports:   make([]reportJSON, 0, len(reports)),
		PassRates: make(map[string]float64),
	}
	for _, rep := range reports {
		resp.Reports = append(resp.Reports, toJSON(rep))
	}
	for _, name := range []string{checker.NameConnection, checker.NameDataFlow, checker.NameLog} {
		pct, err := s.opts.Store.PassRate(r.Context(), name, passRateWindow)
		if err != nil {
			s.logger.Warn().Err(err).Str("check", name).Msg("PassRate")
			continue
		}
		resp.PassRates[name] = pct
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
