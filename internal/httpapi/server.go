// internal/httpapi/server.go

// Package httpapi serves the manager's health, metrics and read-only pricing
// endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"
	"xtenda-workers/internal/repayment"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ScheduleLoader interface {
	Load(ctx context.Context) (repayment.ScheduleTable, error)
}

// Check reports whether a dependency is usable. Nil means ready.
type Check func(ctx context.Context) error

type Options struct {
	SupportedTenures []int
	MinAmount        float64
	MaxAmount        float64
	RequestTimeout   time.Duration
}

type Server struct {
	schedule ScheduleLoader
	opts     Options
	checks   map[string]Check
	logger   logger.Logger
	now      func() time.Time
}

func NewServer(schedule ScheduleLoader, opts Options, checks map[string]Check, log logger.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if len(opts.SupportedTenures) == 0 {
		opts.SupportedTenures = repayment.SupportedTenures
	}
	return &Server{
		schedule: schedule,
		opts:     opts,
		checks:   checks,
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ready", s.ready)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/schedule", s.getSchedule)
	mux.HandleFunc("GET /api/v1/quote", s.getQuote)
	return mux
}

type quoteResponse struct {
	repayment.LoanQuote
	Quotable            bool `json:"quotable"`
	WithinProductLimits bool `json:"withinProductLimits"`
}

type scheduleResponse struct {
	Tenures []int                   `json:"tenures"`
	Entries repayment.ScheduleTable `json:"entries"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"failed": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	table, err := s.schedule.Load(ctx)
	if err != nil {
		s.scheduleFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{
		Tenures: s.opts.SupportedTenures,
		Entries: table.Sorted(),
	})
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		writeError(w, http.StatusBadRequest, "amount must be a finite number")
		return
	}
	tenure, err := strconv.Atoi(q.Get("tenure"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "tenure must be a whole number of months")
		return
	}
	if !repayment.IsSupportedTenure(tenure, s.opts.SupportedTenures) {
		metrics.QuotesComputed.WithLabelValues("http", "invalid_tenure").Inc()
		writeError(w, http.StatusBadRequest, "unsupported tenure")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	table, err := s.schedule.Load(ctx)
	if err != nil {
		s.scheduleFailed(w, err)
		return
	}

	quote := repayment.ComputeLoanQuote(table, amount, tenure)
	if !quote.Finite() {
		metrics.QuotesComputed.WithLabelValues("http", "overflow").Inc()
		writeError(w, http.StatusBadRequest, "amount is too large to quote")
		return
	}
	metrics.QuotesComputed.WithLabelValues("http", metrics.QuoteOutcome(quote.MonthlyInstallment)).Inc()

	writeJSON(w, http.StatusOK, quoteResponse{
		LoanQuote:           quote,
		Quotable:            quote.Quotable(),
		WithinProductLimits: amount >= s.opts.MinAmount && amount <= s.opts.MaxAmount,
	})
}

func (s *Server) scheduleFailed(w http.ResponseWriter, err error) {
	s.logger.Error("failed to load repayment schedule", map[string]interface{}{
		"error": err.Error(),
	})
	writeError(w, http.StatusServiceUnavailable, "repayment schedule unavailable")
}

// writeJSON encodes v before writing the header so an unencodable body
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"response could not be encoded"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
