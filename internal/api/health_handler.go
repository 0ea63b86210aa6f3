package api

import (
	"context"
	"net/http"
	"time"

	"github.com/praxis/backend/pkg/response"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store   Pinger
	version string
	logger  *zap.Logger
}

func NewHealthHandler(store Pinger, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, version: version, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

func (h *HealthHandler) status(s string) HealthResponse {
	return HealthResponse{Status: s, Timestamp: time.Now().UTC().Format(time.RFC3339), Version: h.version}
}

// Health returns the health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.status("ok"))
}

// Ready checks the document store
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		response.ServiceUnavailable(w, "document store unavailable")
		return
	}
	response.OK(w, h.status("ready"))
}

// Live returns the liveness status
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.status("alive"))
}
