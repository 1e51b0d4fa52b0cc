package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/pkg/metrics"
)

// HealthDependencies is what the health check reads.
type HealthDependencies interface {
	State(ctx context.Context) repository.State
	Ready(ctx context.Context) bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps    HealthDependencies
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps, started: time.Now()}
}

type healthResponse struct {
	Status  string           `json:"status"`
	Ready   bool             `json:"ready"`
	Uptime  string           `json:"uptime"`
	Dataset repository.State `json:"dataset"`
}

// HandleHealth handles GET /healthz. The process is healthy once it serves
// requests; Ready is true after the first dataset is published.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Ready:   h.deps.Ready(ctx),
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Dataset: h.deps.State(ctx),
	})
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
