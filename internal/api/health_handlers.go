package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker is implemented by components that can report their own
// availability, such as the dispatch client and the rate-limit store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandlers provides liveness and readiness endpoints.
type HealthHandlers struct {
	// External service checkers, all optional.
	telegramChecker HealthChecker
	redisChecker    HealthChecker
}

// HealthHandlersConfig configures the health check handlers.
type HealthHandlersConfig struct {
	TelegramChecker HealthChecker
	RedisChecker    HealthChecker
}

// NewHealthHandlers creates a new health check handler.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{
		telegramChecker: config.TelegramChecker,
		redisChecker:    config.RedisChecker,
	}
}

// HealthResponse is the JSON body for both probes.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness probe). If the process can respond,
// it is alive; no dependencies are consulted.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed.")
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": "ok"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	writeHealthResponse(w, http.StatusOK, response)
}

// Ready handles GET /ready (readiness probe). Configured dependencies are
// checked and a 503 is returned if any of them fail.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.telegramChecker != nil {
		if err := h.telegramChecker.HealthCheck(ctx); err != nil {
			checks["telegram"] = "error"
			healthy = false
			slog.WarnContext(ctx, "telegram health check failed", "error", err)
		} else {
			checks["telegram"] = "ok"
		}
	}

	if h.redisChecker != nil {
		if err := h.redisChecker.HealthCheck(ctx); err != nil {
			checks["redis"] = "error"
			healthy = false
			slog.WarnContext(ctx, "redis health check failed", "error", err)
		} else {
			checks["redis"] = "ok"
		}
	}

	response := HealthResponse{
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if healthy {
		response.Status = "ready"
	} else {
		response.Status = "not ready"
		status = http.StatusServiceUnavailable
	}

	writeHealthResponse(w, status, response)
}

func writeHealthResponse(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}
