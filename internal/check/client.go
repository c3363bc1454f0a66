package check

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/ratelimit"
)

// HTTPChecker invokes the admission endpoint over HTTP. Both 200 and 429
// responses carry a decision body; anything else is an error, which the
// Checker converts into a fail-open result.
type HTTPChecker struct {
	baseURL string
	client  *http.Client
}

// NewHTTPChecker creates a checker client for the service at baseURL
// (e.g. "http://localhost:8080"). httpClient may be nil for defaults.
func NewHTTPChecker(baseURL string, httpClient *http.Client) *HTTPChecker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPChecker{
		baseURL: baseURL,
		client:  httpClient,
	}
}

// Check posts a check request and decodes the decision.
func (h *HTTPChecker) Check(ctx context.Context, action, clientIP, userID string) (ratelimit.Decision, error) {
	body, err := json.Marshal(models.CheckRequest{
		Action:   action,
		ClientIP: clientIP,
		UserID:   userID,
	})
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("failed to encode check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.baseURL+"/api/v1/ratelimit/check", bytes.NewReader(body))
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("failed to build check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusTooManyRequests {
		return ratelimit.Decision{}, fmt.Errorf("check request returned status %d", resp.StatusCode)
	}

	var decoded models.CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ratelimit.Decision{}, fmt.Errorf("failed to decode check response: %w", err)
	}

	return ratelimit.Decision{
		Allowed:   decoded.Allowed,
		Remaining: decoded.Remaining,
		ResetIn:   time.Duration(decoded.ResetIn) * time.Second,
		Limit:     decoded.Limit,
	}, nil
}
