package service

import (
	"time"

	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/internal/adapters/source"
	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/format"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
	"github.com/mdaly0277/marketintel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher sets where artifacts are read from.
func WithFetcher(f source.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithStore replaces the in-memory dataset store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithFavorites sets the favorites persistence. The service closes it on Stop.
func WithFavorites(f repository.Favorites) Option {
	return func(s *Service) {
		if f != nil {
			s.favorites = f
		}
	}
}

// WithFiles sets the artifact names.
func WithFiles(f Files) Option {
	return func(s *Service) {
		s.files = f.withDefaults()
	}
}

// WithAliases replaces the column alias table.
func WithAliases(a columns.Aliases) Option {
	return func(s *Service) {
		if len(a) > 0 {
			s.aliases = a
		}
	}
}

// WithTopN sets the size of the leader set.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.topN = n
		}
	}
}

// WithTierScheme selects the tier bands.
func WithTierScheme(sc tier.Scheme) Option {
	return func(s *Service) {
		if len(sc.Bands) > 0 {
			s.scheme = sc
		}
	}
}

// WithReturnScale sets how stored returns are interpreted for display.
func WithReturnScale(sc format.Scale) Option {
	return func(s *Service) {
		if sc != "" {
			s.scale = sc
		}
	}
}

// WithWorkerCount sets the number of load workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending loads.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRefreshInterval enables periodic reloads. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refresh = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
