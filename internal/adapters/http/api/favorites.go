package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/types"
)

const maxFavoritesBody = 64 << 10

// handleGetFavorites handles GET /api/favorites.
func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.Favorites{Tickers: nonNil(s.deps.Favorites(r.Context()))})
}

// handlePutFavorites handles PUT /api/favorites, replacing the watchlist.
func (s *Server) handlePutFavorites(w http.ResponseWriter, r *http.Request) {
	var body favoritesBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxFavoritesBody))
	if err := dec.Decode(&body); err != nil {
		s.fail(w, r, fmt.Errorf("%w: invalid JSON body: %v", ErrBadRequest, err))
		return
	}
	if err := s.validateStruct(body); err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.deps.ReplaceFavorites(r.Context(), body.Tickers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Favorites{Tickers: nonNil(list)})
}

// handleToggleFavorite handles POST /api/favorites/{ticker}.
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	p := tickerParam{Ticker: r.PathValue("ticker")}
	if err := s.validateStruct(p); err != nil {
		s.fail(w, r, err)
		return
	}
	on, list, err := s.deps.ToggleFavorite(r.Context(), p.Ticker)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))
	writeJSON(w, http.StatusOK, types.Toggle{Ticker: ticker, Favorited: on, Tickers: nonNil(list)})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
