// Package http exposes the statement analytics over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"behavior/internal/analytics"
	"behavior/internal/core"
	"behavior/internal/log"
	"behavior/internal/middleware/ratelimit"
	"behavior/internal/middleware/security"
	"behavior/internal/middleware/trace"
	"behavior/internal/ordered"
	"behavior/internal/services"
	"behavior/internal/storage"
)

func init() {
	// Totals are served as JSON numbers rather than strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// StatementService runs the analytics over the loaded statement.
type StatementService interface {
	SourceName() string
	Ping(ctx context.Context) error
	RawData(ctx context.Context) ([]core.Record, error)
	DailyExpenseTotals(ctx context.Context) (*ordered.Map[decimal.Decimal], error)
	ExpenseTotals(ctx context.Context, p core.Period) (*ordered.Map[decimal.Decimal], error)
	GroupedByDate(ctx context.Context) (analytics.DateBucket, error)
	CategorizedExpenses(ctx context.Context, p core.Period) (*ordered.Map[analytics.CategoryGroup], error)
	TokenCategories(ctx context.Context) (*ordered.Map[[]string], error)
}

// StatementStore is the relational view of the statement.
type StatementStore interface {
	ListStatements(ctx context.Context) ([]storage.StatementRow, error)
	Ping(ctx context.Context) error
}

// Importer triggers an import of the configured statement CSV.
type Importer interface {
	Import(ctx context.Context) (services.ImportResult, error)
}

// Sizer reports the number of cached entries.
type Sizer interface {
	Size() int
}

// Deps are the collaborators the handlers call. Store, Importer and Cache
// are optional; leave them nil rather than passing typed nil pointers.
type Deps struct {
	Statements StatementService
	Store      StatementStore
	Importer   Importer
	Cache      Sizer
	Logger     *log.Logger
}

// Options tune the server.
type Options struct {
	RateLimitPerMinute int
	ReadyTimeout       time.Duration
}

type Server struct {
	http.Server

	statements StatementService
	store      StatementStore
	importer   Importer
	cache      Sizer

	logger      *log.Logger
	structured  *log.StructuredLogger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	trace       *trace.Middleware

	readyTimeout time.Duration
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		statements:   deps.Statements,
		store:        deps.Store,
		importer:     deps.Importer,
		cache:        deps.Cache,
		logger:       logger,
		structured:   log.NewStructuredLogger(logger),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     detector,
		trace:        trace.NewMiddleware(detector.ExtractClientIP, logger),
		readyTimeout: opts.ReadyTimeout,
		started:      time.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleWelcome)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /analytics/data", s.handleRawData)
	mux.HandleFunc("GET /analytics/daily_expenses", s.handleDailyExpenses)
	mux.HandleFunc("GET /analytics/weekly_expenses", s.handlePeriodExpenses(core.Weekly))
	mux.HandleFunc("GET /analytics/monthly_expenses", s.handlePeriodExpenses(core.Monthly))
	mux.HandleFunc("GET /analytics/group_transactions_by_date", s.handleGroupedByDate)
	mux.HandleFunc("GET /analytics/category_expenses", s.handleCategoryExpenses)
	mux.HandleFunc("GET /analytics/token_categories", s.handleTokenCategories)

	mux.HandleFunc("GET /statement/{$}", s.handleListStatements)
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)
	mux.Handle("POST /statement/import", limit(http.HandlerFunc(s.handleImport)))

	var h http.Handler = mux
	h = s.recoverer(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(s.logger)(h)
	h = s.trace.Middleware(h)
	return h
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
