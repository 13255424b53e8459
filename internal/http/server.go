// Package http exposes the subscription store as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/middleware/ratelimit"
	"subtrack/internal/middleware/security"
	"subtrack/internal/middleware/trace"
)

// SubscriptionStore is the store surface the handlers use.
// *store.Store implements it.
type SubscriptionStore interface {
	AddSubscription(ctx context.Context, in core.SubscriptionInput) (core.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, patch core.SubscriptionPatch) error
	DeleteSubscription(ctx context.Context, id string) error
	ToggleSubscriptionStatus(ctx context.Context, id string) error
	SetFilter(ctx context.Context, f core.FilterState) error

	FilteredSubscriptions() []core.Subscription
	Subscriptions() []core.Subscription
	Subscription(id string) (core.Subscription, bool)
	Filter() core.FilterState
	Overview() core.ExpenseOverview
	Categories() []string
	UpcomingRenewals(days int) []core.Subscription
	Today() core.Date
}

// Exporter renders the collection as an XLSX workbook.
type Exporter interface {
	XLSX(ctx context.Context) ([]byte, error)
}

// Metrics is the HTTP side of *metrics.Metrics.
type Metrics interface {
	Handler() http.Handler
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Options configures NewServer. Store is required.
type Options struct {
	Store              SubscriptionStore
	Exporter           Exporter
	Metrics            Metrics
	Logger             *log.Logger
	RateLimitPerMinute int
	// Ready, when set, backs /readyz.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	store    SubscriptionStore
	exporter Exporter
	ready    func(ctx context.Context) error
	logger   *log.Logger
	events   *log.StructuredLogger

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:    opts.Store,
		exporter: opts.Exporter,
		ready:    opts.Ready,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	mux.HandleFunc("GET /api/subscriptions", s.handleListFiltered)
	mux.HandleFunc("GET /api/subscriptions/all", s.handleListAll)
	mux.HandleFunc("POST /api/subscriptions", s.handleCreate)
	mux.HandleFunc("GET /api/subscriptions/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/subscriptions/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/subscriptions/{id}/toggle", s.handleToggle)

	mux.HandleFunc("GET /api/filter", s.handleGetFilter)
	mux.HandleFunc("PUT /api/filter", s.handleSetFilter)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/renewals", s.handleRenewals)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExport)

	detector := security.NewDetector(logger)
	var observe trace.Observer
	if opts.Metrics != nil {
		observe = func(method, route string, status int, elapsed time.Duration) {
			if route == "" {
				route = "unmatched"
			}
			opts.Metrics.ObserveHTTP(method, route, status, elapsed)
		}
	}
	tracer := trace.NewMiddleware(detector.ExtractClientIP, logger, observe)
	limit := s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.MutatingRequests,
		func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			TooManyRequestsError().Write(w)
		})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// The tracer must see the request the mux matched, so nothing between
	// them may replace it.
	s.Handler = headers.Middleware(detector.Middleware(tracer.Middleware(limit(mux))))
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
