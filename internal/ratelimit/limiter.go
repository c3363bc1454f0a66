// Package ratelimit implements the request-admission core: the authoritative
// fixed-lookback limiter over the durable attempt log, an in-memory token
// bucket used to protect the service's own endpoints, and HTTP middleware
// that sets standard rate limit response headers.
package ratelimit

import "time"

// Decision is the outcome of a single rate limit check. It is produced fresh
// on every check and never persisted.
type Decision struct {
	Allowed   bool          // Whether the request may proceed
	Remaining int           // Requests left in the current window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // Maximum requests per window
}

// Limiter is the self-protection limiting contract used by the HTTP
// middleware. Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow checks whether a request identified by key should be allowed.
	Allow(key string) (allowed bool, info Info)

	// Close stops background goroutines and releases resources.
	Close()
}

// Info contains token bucket state for populating response headers.
type Info struct {
	Limit      int           // Maximum requests per window
	Remaining  int           // Approximate tokens remaining
	ResetAt    time.Time     // When the bucket will be full again
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}
