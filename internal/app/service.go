// Package service wires the screener pipeline, the dataset store, favorites
// and the JSON artifacts into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mdaly0277/marketintel/internal/adapters/mq/queue"
	"github.com/mdaly0277/marketintel/internal/adapters/mq/worker"
	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/internal/adapters/source"
	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/format"
	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/internal/domain/ranking"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
	"github.com/mdaly0277/marketintel/pkg/logger"
	"github.com/mdaly0277/marketintel/pkg/metrics"
)

// DefaultScreenerFile is the screener CSV artifact name.
const DefaultScreenerFile = "screener.csv"

// Files names the artifacts, relative to the data source.
type Files struct {
	Screener         string
	Dashboard        string
	TierBacktest     string
	Portfolio        string
	TickerHistoryDir string
}

func (f Files) withDefaults() Files {
	if f.Screener == "" {
		f.Screener = DefaultScreenerFile
	}
	if f.Dashboard == "" {
		f.Dashboard = artifacts.DashboardFile
	}
	if f.TierBacktest == "" {
		f.TierBacktest = artifacts.TierBacktestFile
	}
	if f.Portfolio == "" {
		f.Portfolio = artifacts.PortfolioFile
	}
	if f.TickerHistoryDir == "" {
		f.TickerHistoryDir = artifacts.TickerHistoryDir
	}
	return f
}

// Service implements the API dependencies for the screener.
type Service struct {
	mu sync.RWMutex

	// Core components
	fetcher   source.Fetcher
	store     repository.Store
	favorites repository.Favorites
	queue     queue.Queue
	pool      *worker.Pool

	// Favorites in toggle order; favSet mirrors favList.
	favMu   sync.RWMutex
	favList []string
	favSet  query.Set

	// Serialises generation assignment with enqueueing.
	reloadMu sync.Mutex

	// Configuration
	files       Files
	aliases     columns.Aliases
	topN        int
	scheme      tier.Scheme
	scale       format.Scale
	workerCount int
	queueSize   int
	refresh     time.Duration

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		store:       repository.NewSnapshotStore(),
		favorites:   repository.NewMemoryFavorites(),
		favSet:      query.NewSet(),
		files:       Files{}.withDefaults(),
		aliases:     columns.DefaultAliases,
		topN:        ranking.DefaultTopN,
		scheme:      tier.SchemeA,
		scale:       format.Decimal,
		workerCount: 1,
		queueSize:   16,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Start restores favorites, starts the load workers and requests the first
// load. A stopped Service cannot be started again. When Start fails it closes
// the favorites store.
func (s *Service) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := s.favorites.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close favorites: %w", cerr))
		}
	}()
	if s.fetcher == nil {
		return ErrNoSource
	}

	s.logger.Info(ctx, "starting screener service...")

	tickers, err := s.favorites.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrCorruptFavorites):
		s.logger.Warn(ctx, "stored favorites unreadable, starting empty", logger.Error(err))
		tickers = nil
	case err != nil:
		return fmt.Errorf("load favorites: %w", err)
	}
	s.setFavorites(tickers)

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.queue = q
	s.pool = worker.NewPool(s.workerCount, q, s, worker.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.stopCh = make(chan struct{})
	if s.refresh > 0 {
		s.wg.Add(1)
		go s.refreshLoop(ctx, q)
	}

	s.started = true
	if _, err := s.enqueueLoad(ctx, q, ReasonStartup); err != nil {
		s.logger.Warn(ctx, "initial load not queued", logger.Error(err))
	}

	s.logger.Info(ctx, "screener service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("topN", s.topN),
		logger.String("scheme", s.scheme.Name),
		logger.Duration("refresh", s.refresh),
	)
	return nil
}

// Stop waits for in-flight loads and closes the favorites store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping screener service...")

	close(s.stopCh)
	s.wg.Wait()

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.favorites.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close favorites: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "screener service stopped")
	return errors.Join(errs...)
}

// TierScheme returns the scheme used to classify scores.
func (s *Service) TierScheme() tier.Scheme {
	return s.scheme
}

// State returns the dataset load state.
func (s *Service) State(ctx context.Context) repository.State {
	return s.store.State(ctx)
}

// Ready reports whether a dataset has been published.
func (s *Service) Ready(ctx context.Context) bool {
	return s.store.Current(ctx) != nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := s.store.State(ctx)
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"topN":        s.topN,
		"tierScheme":  s.scheme.Name,
		"returnScale": string(s.scale),
		"status":      string(st.Status),
		"generation":  st.Published,
		"requested":   st.Requested,
		"favorites":   len(s.Favorites(ctx)),
	}
	if st.Error != "" {
		stats["error"] = st.Error
	}

	if ds := s.store.Current(ctx); ds != nil {
		stats["rows"] = ds.Len()
		stats["ranked"] = ds.Ranked
		stats["unresolvedColumns"] = len(ds.Mapping.Unresolved())
		stats["loadedAt"] = ds.LoadedAt
		stats["loaded"] = humanize.Time(ds.LoadedAt)
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats["memory"] = humanize.Bytes(mem.Alloc)
	stats["goroutines"] = runtime.NumGoroutine()
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	return stats
}
