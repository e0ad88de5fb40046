// Package trace logs each API request with its request id and outcome.
package trace

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	applog "github.com/guilhermegsn/finance-control/internal/log"
)

// Middleware attaches a request-scoped logger and logs completion.
// It expects chi's middleware.RequestID to run first.
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string
	requests  atomic.Int64
	totalMs   atomic.Int64
}

type Metrics struct {
	TotalRequests     int64
	AverageDurationMs int64
}

func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{logger: logger, extractIP: extractIP}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	structured := applog.NewStructuredLogger(m.logger)
	traced := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		ctx := r.Context()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		durationMs := time.Since(start).Milliseconds()
		m.requests.Add(1)
		m.totalMs.Add(durationMs)

		structured.LogHTTPEnd(ctx, r, status, durationMs, clientIP)
	})
	return applog.Middleware(m.logger)(applog.RequestIDMiddleware(requestID)(traced))
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// GetMetrics returns the request count and mean duration so far.
func (m *Middleware) GetMetrics() Metrics {
	n := m.requests.Load()
	var avg int64
	if n > 0 {
		avg = m.totalMs.Load() / n
	}
	return Metrics{TotalRequests: n, AverageDurationMs: avg}
}
