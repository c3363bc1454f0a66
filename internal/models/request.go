// Package models - API request types with validation.
package models

import (
	"errors"
	"strings"
)

// CheckRequest is the body of a rate limit check call.
// ClientIP and UserID are optional; identity resolution falls back to the
// anonymous bucket when both are empty.
type CheckRequest struct {
	Action   string `json:"action"`
	ClientIP string `json:"clientIp,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// Validate checks that the request is well formed. A malformed request is a
// client error and must not consume quota.
func (r *CheckRequest) Validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return errors.New("action is required")
	}
	return nil
}

// Normalize trims whitespace from all fields in place.
func (r *CheckRequest) Normalize() {
	r.Action = strings.TrimSpace(r.Action)
	r.ClientIP = strings.TrimSpace(r.ClientIP)
	r.UserID = strings.TrimSpace(r.UserID)
}
