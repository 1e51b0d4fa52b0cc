package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/mdaly0277/marketintel/internal/domain/types"
	"github.com/mdaly0277/marketintel/pkg/logger"
	"github.com/mdaly0277/marketintel/pkg/metrics"
)

const reloadReason = "api"

// handleReload handles POST /api/reload. The load runs asynchronously;
// poll /healthz or the screener status for the outcome.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	res := s.reloadLimiter.Reserve()
	if wait := res.Delay(); wait > 0 {
		res.Cancel()
		metrics.RecordReloadRejected("rate_limited")
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		s.fail(w, r, ErrRateLimited)
		return
	}
	req, err := s.deps.Reload(r.Context(), reloadReason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "reload requested",
		logger.String("request_id", req.ID.String()),
		logger.Int64("generation", int64(req.Generation)),
	)
	writeJSON(w, http.StatusAccepted, types.Reload{
		ID:         req.ID.String(),
		Generation: req.Generation,
		Reason:     req.Reason,
	})
}
