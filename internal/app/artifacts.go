package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/types"
)

func fetchDecode[T any](ctx context.Context, s *Service, name string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	if s.fetcher == nil {
		return zero, ErrNoSource
	}
	b, err := s.fetcher.Fetch(ctx, name)
	if err != nil {
		return zero, fmt.Errorf("fetch %s: %w", name, err)
	}
	v, err := decode(bytes.NewReader(b))
	if err != nil {
		return zero, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, nil
}

// Dashboard returns the market dashboard with its dispersion narrative.
func (s *Service) Dashboard(ctx context.Context) (types.Dashboard, error) {
	d, err := fetchDecode(ctx, s, s.files.Dashboard, artifacts.DecodeDashboard)
	if err != nil {
		return types.Dashboard{}, err
	}
	return types.Dashboard{Dashboard: d, Narrative: d.Dispersion.Narrative()}, nil
}

// TierBacktest returns the per-tier forward return statistics.
func (s *Service) TierBacktest(ctx context.Context) (artifacts.TierBacktest, error) {
	return fetchDecode(ctx, s, s.files.TierBacktest, artifacts.DecodeTierBacktest)
}

// Portfolio returns the model portfolio.
func (s *Service) Portfolio(ctx context.Context) (artifacts.Portfolio, error) {
	return fetchDecode(ctx, s, s.files.Portfolio, artifacts.DecodePortfolio)
}

// TickerHistory returns symbol's score history cut to timeframe, "" meaning
// the default window.
func (s *Service) TickerHistory(ctx context.Context, symbol, timeframe string) (types.History, error) {
	sym, err := cleanTicker(symbol)
	if err != nil {
		return types.History{}, err
	}
	tf, err := artifacts.ParseTimeframe(timeframe)
	if err != nil {
		return types.History{}, fmt.Errorf("%w: %q", err, timeframe)
	}
	h, err := fetchDecode(ctx, s, artifacts.HistoryFile(s.files.TickerHistoryDir, sym), artifacts.DecodeTickerHistory)
	if err != nil {
		return types.History{}, err
	}
	return types.NewHistory(h, tf), nil
}
