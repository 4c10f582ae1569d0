package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tutor-service/common/httputil"
	"tutor-service/common/metrics"

	"github.com/go-chi/chi/v5"
)

// Checker is the dependency readiness depends on
type Checker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	checker    Checker
	dependency string
	metrics    *metrics.HealthMetrics
	logger     *slog.Logger
}

func NewHandler(checker Checker, dependency string, hm *metrics.HealthMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		checker:    checker,
		dependency: dependency,
		metrics:    hm,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.check(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", "dependency", h.dependency, "error", err)
		httputil.RespondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func (h *Handler) check(ctx context.Context) error {
	start := time.Now()
	err := h.checker.Ping(ctx)
	h.metrics.RecordDependencyCheck(ctx, h.dependency, time.Since(start), err)
	return err
}
