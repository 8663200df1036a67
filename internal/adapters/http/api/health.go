package api

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a new health handler. A nil checker always reports ok.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

type healthResponse struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if h.checker != nil {
		if err := h.checker.Ping(r.Context()); err != nil {
			resp.Status = "unavailable"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	resp.LatencyMs = time.Since(start).Milliseconds()
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, status, resp)
}
