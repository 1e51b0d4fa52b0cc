package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/pkg/metrics"
)

const maxTickerLen = 16

// validTicker accepts symbols such as "BRK.B", "^GSPC" or "EURUSD=X".
func validTicker(t string) bool {
	if t == "" || len(t) > maxTickerLen {
		return false
	}
	for _, c := range t {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '.', c == '-', c == '^', c == '=':
		default:
			return false
		}
	}
	return true
}

// cleanTicker trims and upper-cases t so it matches the dataset's tickers.
func cleanTicker(t string) (string, error) {
	t = strings.TrimSpace(t)
	if !validTicker(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, t)
	}
	return strings.ToUpper(t), nil
}

// setFavorites installs tickers, upper-cased, dropping blanks and repeats.
func (s *Service) setFavorites(tickers []string) {
	list, set := dedupe(tickers)
	s.favMu.Lock()
	s.favList, s.favSet = list, set
	s.favMu.Unlock()
	metrics.UpdateFavoritesCount(len(list))
}

func dedupe(tickers []string) ([]string, query.Set) {
	list := make([]string, 0, len(tickers))
	set := query.NewSet()
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || set.Has(t) {
			continue
		}
		set[t] = struct{}{}
		list = append(list, t)
	}
	return list, set
}

func (s *Service) favoriteSet() query.Set {
	s.favMu.RLock()
	defer s.favMu.RUnlock()
	out := make(query.Set, len(s.favSet))
	for t := range s.favSet {
		out[t] = struct{}{}
	}
	return out
}

// Favorites returns the watchlist in the order tickers were added.
func (s *Service) Favorites(ctx context.Context) []string {
	s.favMu.RLock()
	defer s.favMu.RUnlock()
	return slices.Clone(s.favList)
}

// ToggleFavorite adds ticker to the watchlist or removes it, then persists
// the whole list. It reports whether ticker is now a favorite. The in-memory
// list only changes when the write succeeds.
func (s *Service) ToggleFavorite(ctx context.Context, ticker string) (bool, []string, error) {
	t, err := cleanTicker(ticker)
	if err != nil {
		return false, nil, err
	}

	s.favMu.Lock()
	defer s.favMu.Unlock()

	next := slices.Clone(s.favList)
	favorited := !s.favSet.Has(t)
	if favorited {
		next = append(next, t)
	} else {
		next = slices.DeleteFunc(next, func(x string) bool { return x == t })
	}
	if err := s.persist(ctx, next); err != nil {
		return !favorited, slices.Clone(s.favList), err
	}
	return favorited, slices.Clone(next), nil
}

// ReplaceFavorites overwrites the watchlist.
func (s *Service) ReplaceFavorites(ctx context.Context, tickers []string) ([]string, error) {
	for _, t := range tickers {
		if _, err := cleanTicker(t); err != nil {
			return nil, err
		}
	}
	next, _ := dedupe(tickers)

	s.favMu.Lock()
	defer s.favMu.Unlock()
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	return slices.Clone(next), nil
}

// persist saves next and installs it. Callers hold favMu.
func (s *Service) persist(ctx context.Context, next []string) error {
	if err := s.favorites.Save(ctx, next); err != nil {
		metrics.RecordErrorByComponent("favorites", "save_error")
		return fmt.Errorf("persist favorites: %w", err)
	}
	list, set := dedupe(next)
	s.favList, s.favSet = list, set
	metrics.UpdateFavoritesCount(len(list))
	return nil
}
