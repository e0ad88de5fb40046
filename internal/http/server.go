// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
	applog "github.com/guilhermegsn/finance-control/internal/log"
	"github.com/guilhermegsn/finance-control/internal/middleware/ratelimit"
	"github.com/guilhermegsn/finance-control/internal/middleware/security"
	"github.com/guilhermegsn/finance-control/internal/middleware/trace"
	"github.com/guilhermegsn/finance-control/internal/services"
)

// MonthReader reconciles a month for display.
type MonthReader interface {
	MonthView(ctx context.Context, year, month int) (services.MonthView, error)
}

// BalanceReader answers accumulated balance queries.
type BalanceReader interface {
	AccumulatedBalance(ctx context.Context, year, month int) (core.Money, error)
	Size() int
}

// LedgerWriter applies the four ledger mutations.
type LedgerWriter interface {
	Add(ctx context.Context, in services.AddInput) (string, error)
	EditUnique(ctx context.Context, id string, in services.EditInput) error
	EditOnlyMonth(ctx context.Context, seriesID string, year, month int, in services.OverrideInput) (string, error)
	EditAllFromMonth(ctx context.Context, seriesID string, year, month int, in services.SplitInput) (string, error)
}

// Deps are the collaborators of the API.
type Deps struct {
	Store    ledger.Store
	Months   MonthReader
	Balances BalanceReader
	Ledger   LedgerWriter
	Logger   *applog.Logger

	// RateLimit enables the per-IP write limit.
	RateLimit bool
	// CORSOrigins are the browser origins allowed to call /api. Empty
	// disables CORS handling.
	CORSOrigins []string
}

type Server struct {
	http.Server

	store    ledger.Store
	months   MonthReader
	balances BalanceReader
	ledger   LedgerWriter
	events   *applog.StructuredLogger
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer builds the router and returns a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		store:    deps.Store,
		months:   deps.Months,
		balances: deps.Balances,
		ledger:   deps.Ledger,
		events:   applog.NewStructuredLogger(logger),
		started:  time.Now(),
	}

	detector := security.NewDetector()
	tracer := trace.NewMiddleware(logger, detector.ExtractClientIP)
	s.tracer, s.detector = tracer, detector

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(detector.Middleware)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodOptions,
			},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
			MaxAge:         300,
		}).Handler)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		if deps.RateLimit {
			cfg := ratelimit.DefaultConfig()
			s.limiter = ratelimit.NewLimiter(cfg)
			r.Use(s.limiter.Middleware(detector.ExtractClientIP, cfg.Methods, func(w http.ResponseWriter, r *http.Request) {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
					WarnContext(r.Context(), "Rate limit exceeded", applog.FieldPath, r.URL.Path)
				writeJSON(w, http.StatusTooManyRequests, errorDTO{Error: "rate limit exceeded"})
			}))
		}

		r.Get("/months/{year}/{month}", s.handleMonth)
		r.Get("/months/{year}/{month}/balance", s.handleBalance)
		r.Post("/transactions", s.handleAdd)
		r.Put("/transactions/{id}", s.handleEditUnique)
		r.Post("/series/{id}/months/{year}/{month}/override", s.handleOverride)
		r.Post("/series/{id}/months/{year}/{month}/split", s.handleSplit)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
