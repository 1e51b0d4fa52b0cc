package api

import (
	"net/http"
)

// handleDashboard handles GET /api/dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleTierBacktest handles GET /api/tier-backtest.
func (s *Server) handleTierBacktest(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.TierBacktest(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handlePortfolio handles GET /api/portfolio.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Portfolio(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleTicker handles GET /api/ticker/{symbol}?timeframe=1Y.
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	p := historyParams{
		Symbol:    r.PathValue("symbol"),
		Timeframe: r.URL.Query().Get("timeframe"),
	}
	if err := s.validateStruct(p); err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.deps.TickerHistory(r.Context(), p.Symbol, p.Timeframe)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}
