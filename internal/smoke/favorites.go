package smoke

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/mdaly0277/marketintel/internal/domain/types"
	"github.com/mdaly0277/marketintel/pkg/logger"
)

// checkFavorites toggles ticker on and off and checks that the watchlist
// and pin views follow. The favorites list is restored afterwards.
func checkFavorites(ctx context.Context, client *httpClient, ticker string) (err error) {
	logger.Get().Info(ctx, "checking favorites round trip", logger.String("ticker", ticker))

	var before types.Favorites
	if err := client.getJSON(ctx, "/api/favorites", nil, &before); err != nil {
		return fmt.Errorf("get favorites: %w", err)
	}
	defer func() {
		restoreErr := client.sendJSON(ctx, http.MethodPut, "/api/favorites", before, nil)
		if err == nil && restoreErr != nil {
			err = fmt.Errorf("restore favorites: %w", restoreErr)
		}
	}()

	// Start from a list without ticker so one toggle adds it.
	without := slices.DeleteFunc(slices.Clone(before.Tickers), func(t string) bool { return t == ticker })
	if err := client.sendJSON(ctx, http.MethodPut, "/api/favorites", types.Favorites{Tickers: without}, nil); err != nil {
		return fmt.Errorf("replace favorites: %w", err)
	}

	var on types.Toggle
	if err := client.sendJSON(ctx, http.MethodPost, "/api/favorites/"+url.PathEscape(ticker), nil, &on); err != nil {
		return fmt.Errorf("toggle on: %w", err)
	}
	if !on.Favorited || !slices.Contains(on.Tickers, ticker) {
		return fmt.Errorf("toggle on: %s not favorited: %v", ticker, on.Tickers)
	}

	var watch types.Screener
	q := url.Values{"watchlist": {"true"}, "show_gated": {"true"}}
	if err := client.getJSON(ctx, "/api/screener", q, &watch); err != nil {
		return fmt.Errorf("watchlist: %w", err)
	}
	for _, r := range watch.Rows {
		if !r.Favorite {
			return fmt.Errorf("watchlist: %s listed but not a favorite", r.Ticker)
		}
	}
	if !slices.ContainsFunc(watch.Rows, func(r types.Row) bool { return r.Ticker == ticker }) {
		return fmt.Errorf("watchlist: %s missing", ticker)
	}

	var pinned types.Screener
	q = url.Values{"pin": {"true"}, "show_gated": {"true"}}
	if err := client.getJSON(ctx, "/api/screener", q, &pinned); err != nil {
		return fmt.Errorf("pin: %w", err)
	}
	seenOther := false
	for _, r := range pinned.Rows {
		if !r.Favorite {
			seenOther = true
		} else if seenOther {
			return fmt.Errorf("pin: favorite %s after non-favorites", r.Ticker)
		}
	}

	var off types.Toggle
	if err := client.sendJSON(ctx, http.MethodPost, "/api/favorites/"+url.PathEscape(ticker), nil, &off); err != nil {
		return fmt.Errorf("toggle off: %w", err)
	}
	if off.Favorited || slices.Contains(off.Tickers, ticker) {
		return fmt.Errorf("toggle off: %s still favorited", ticker)
	}
	return nil
}
