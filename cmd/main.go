package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdaly0277/marketintel/internal/adapters/http/api"
	"github.com/mdaly0277/marketintel/internal/adapters/http/site"
	"github.com/mdaly0277/marketintel/internal/adapters/http/swagger"
	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/internal/adapters/source"
	service "github.com/mdaly0277/marketintel/internal/app"
	"github.com/mdaly0277/marketintel/internal/config"
	"github.com/mdaly0277/marketintel/internal/domain/format"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
	"github.com/mdaly0277/marketintel/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		// Logger isn't available yet.
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "marketintel exited", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and HTTP server and blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service stop failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return runErr
}

// newService builds the screener service from configuration.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	scheme, err := tier.Lookup(cfg.TierScheme)
	if err != nil {
		return nil, err
	}
	scale, err := format.ParseScale(cfg.ReturnScale)
	if err != nil {
		return nil, err
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	// Opened last so earlier failures have nothing to close.
	favs, err := newFavorites(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return service.New(
		service.WithLogger(log),
		service.WithFetcher(source.NewShared(fetcher)),
		service.WithFavorites(favs),
		service.WithFiles(service.Files{
			Screener:         cfg.ScreenerFile,
			Dashboard:        cfg.DashboardFile,
			TierBacktest:     cfg.TierBacktestFile,
			Portfolio:        cfg.PortfolioFile,
			TickerHistoryDir: cfg.TickerHistoryDir,
		}),
		service.WithTopN(cfg.TopN),
		service.WithTierScheme(scheme),
		service.WithReturnScale(scale),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithRefreshInterval(cfg.RefreshInterval()),
	), nil
}

// newFetcher prefers the HTTP origin when one is configured.
func newFetcher(cfg *config.Config) (source.Fetcher, error) {
	if cfg.DataBaseURL != "" {
		h, err := source.NewHTTP(cfg.DataBaseURL, source.WithTimeout(cfg.FetchTimeout()))
		if err != nil {
			return nil, fmt.Errorf("data source: %w", err)
		}
		return h, nil
	}
	return source.NewDir(cfg.DataDir), nil
}

func newFavorites(ctx context.Context, cfg *config.Config) (repository.Favorites, error) {
	if cfg.FavoritesDB == "" {
		return repository.NewMemoryFavorites(), nil
	}
	favs, err := repository.OpenSQLiteFavorites(ctx, cfg.FavoritesDB, repository.WithKey(cfg.FavoritesKey))
	if err != nil {
		return nil, fmt.Errorf("favorites store: %w", err)
	}
	return favs, nil
}

// newMux registers the API, docs and site on one mux.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithMaxPageLimit(cfg.MaxPageLimit),
		api.WithReloadPerMinute(cfg.ReloadPerMinute),
		api.WithTierScheme(svc.TierScheme()),
		api.WithLogger(log),
	)
	apiServer.Register(ctx, mux)

	site.Register(ctx, mux)
	return mux
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}
