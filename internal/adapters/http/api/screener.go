package api

import (
	"net/http"

	"github.com/mdaly0277/marketintel/pkg/logger"
)

// handleScreener handles GET /api/screener.
func (s *Server) handleScreener(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseScreener(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Screener(r.Context(), req))
}

// handleOptions handles GET /api/screener/options.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Options(r.Context()))
}

// handleColumns handles GET /api/screener/columns.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Columns(r.Context()))
}

// handleExport handles GET /api/screener/export?format=csv|xlsx. Paging
// parameters are ignored; the whole view is exported.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseScreener(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatCSV
	}
	enc, ok := exporters[format]
	if !ok {
		s.fail(w, r, ErrUnsupportedFormat)
		return
	}

	rows := s.deps.Export(r.Context(), req.Filter, req.Sort)
	w.Header().Set("Content-Type", enc.contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="screener.`+format+`"`)
	if err := enc.write(w, rows); err != nil {
		// Headers are gone; all that is left is to log.
		s.logger.Error(r.Context(), "export failed", logger.Error(err))
	}
}
