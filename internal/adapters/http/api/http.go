// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/mdaly0277/marketintel/internal/adapters/mq/queue"
	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
	"github.com/mdaly0277/marketintel/internal/domain/types"
	"github.com/mdaly0277/marketintel/pkg/logger"
)

const (
	defaultMaxPageLimit    = 500
	defaultReloadPerMinute = 6
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Screener views over the published dataset.
	Screener(ctx context.Context, req query.Request) types.Screener
	Export(ctx context.Context, f query.FilterState, sort query.SortState) []types.Row
	Options(ctx context.Context) types.Options
	Columns(ctx context.Context) []types.Column

	// Watchlist.
	Favorites(ctx context.Context) []string
	ToggleFavorite(ctx context.Context, ticker string) (bool, []string, error)
	ReplaceFavorites(ctx context.Context, tickers []string) ([]string, error)

	// Reload enqueues a dataset load. Fails with queue.ErrFull when busy.
	Reload(ctx context.Context, reason string) (queue.LoadRequest, error)
	State(ctx context.Context) repository.State
	Ready(ctx context.Context) bool

	// JSON artifacts.
	Dashboard(ctx context.Context) (types.Dashboard, error)
	TierBacktest(ctx context.Context) (artifacts.TierBacktest, error)
	Portfolio(ctx context.Context) (artifacts.Portfolio, error)
	TickerHistory(ctx context.Context, symbol, timeframe string) (types.History, error)
}

// Option configures a Server.
type Option func(*Server)

// WithMaxPageLimit caps the screener page size.
func WithMaxPageLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPageLimit = n
		}
	}
}

// WithReloadPerMinute limits POST /api/reload.
func WithReloadPerMinute(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.reloadPerMinute = n
		}
	}
}

// WithTierScheme sets the scheme the tier filter is checked against.
func WithTierScheme(sc tier.Scheme) Option {
	return func(s *Server) {
		if sc.Name != "" {
			s.scheme = sc
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	healthHandler *HealthHandler
	statsHandler  *StatsHandler

	validate        *validator.Validate
	reloadLimiter   *rate.Limiter
	reloadPerMinute int
	maxPageLimit    int
	scheme          tier.Scheme

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		stats:           statsProvider,
		validate:        newValidator(),
		reloadPerMinute: defaultReloadPerMinute,
		maxPageLimit:    defaultMaxPageLimit,
		scheme:          tier.SchemeA,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("api")
	s.reloadLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.reloadPerMinute)), 1)
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/screener", MetricsMiddleware(s.handleScreener, "screener"))
	mux.HandleFunc("GET /api/screener/options", MetricsMiddleware(s.handleOptions, "screener_options"))
	mux.HandleFunc("GET /api/screener/columns", MetricsMiddleware(s.handleColumns, "screener_columns"))
	mux.HandleFunc("GET /api/screener/export", MetricsMiddleware(s.handleExport, "screener_export"))

	mux.HandleFunc("GET /api/favorites", MetricsMiddleware(s.handleGetFavorites, "favorites"))
	mux.HandleFunc("PUT /api/favorites", MetricsMiddleware(s.handlePutFavorites, "favorites"))
	mux.HandleFunc("POST /api/favorites/{ticker}", MetricsMiddleware(s.handleToggleFavorite, "favorites_toggle"))

	mux.HandleFunc("POST /api/reload", MetricsMiddleware(s.handleReload, "reload"))

	mux.HandleFunc("GET /api/dashboard", MetricsMiddleware(s.handleDashboard, "dashboard"))
	mux.HandleFunc("GET /api/tier-backtest", MetricsMiddleware(s.handleTierBacktest, "tier_backtest"))
	mux.HandleFunc("GET /api/portfolio", MetricsMiddleware(s.handlePortfolio, "portfolio"))
	mux.HandleFunc("GET /api/ticker/{symbol}", MetricsMiddleware(s.handleTicker, "ticker"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status it maps to. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}
