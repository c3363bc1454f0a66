// Package api implements the HTTP surface of the admission service: the
// check endpoint, health checks, routing, and middleware.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/ratelimit"
	"gatekeeper/internal/storage"
	"gatekeeper/internal/version"
)

// Handlers contains the HTTP handlers for the admission API.
type Handlers struct {
	limiter *ratelimit.Service
	store   storage.AttemptStore
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handlers)

// WithStore provides the attempt store for health checks.
func WithStore(store storage.AttemptStore) HandlerOption {
	return func(h *Handlers) {
		h.store = store
	}
}

// NewHandlers creates a new handlers instance.
func NewHandlers(limiter *ratelimit.Service, opts ...HandlerOption) *Handlers {
	h := &Handlers{limiter: limiter}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CheckRateLimit handles admission check requests
// POST /api/v1/ratelimit/check
//
// 200 with allowed:true when admitted, 429 with allowed:false when denied.
// Internal failures have already been converted to an allow decision by the
// limiter, so this handler never returns a 5xx for storage trouble.
func (h *Handlers) CheckRateLimit(w http.ResponseWriter, r *http.Request) {
	var req models.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, err.Error())
		return
	}

	// When the body carries no address, fall back to proxy headers. The raw
	// transport address is deliberately not used here: without a proxy header
	// the identity falls through to userId, then the anonymous bucket.
	clientIP := req.ClientIP
	if clientIP == "" {
		clientIP = forwardedIP(r)
	}

	decision := h.limiter.Check(r.Context(), req.Action, clientIP, req.UserID)

	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", time.Now().Add(decision.ResetIn).Format(time.RFC3339))

	status := http.StatusOK
	if !decision.Allowed {
		status = http.StatusTooManyRequests
	}

	h.writeJSONResponse(w, status, models.CheckResponse{
		Allowed:   decision.Allowed,
		Remaining: decision.Remaining,
		ResetIn:   int64(decision.ResetIn.Seconds()),
		Limit:     decision.Limit,
	})
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = version.GetInfo().Version

	response.AddComponent("api", models.StatusHealthy, "API is operational")

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			// Storage being down degrades enforcement but the service
			// still answers (fail open), so report degraded, not unhealthy.
			response.Status = models.StatusDegraded
			response.AddComponent("storage", models.StatusUnhealthy, err.Error())
			slog.Warn("health check storage ping failed", "error", err)
		} else {
			response.AddComponent("storage", models.StatusHealthy, "Attempt log is reachable")
		}
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing more to send.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}

// forwardedIP extracts the original client address from proxy headers.
func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return r.Header.Get("X-Real-IP")
}
