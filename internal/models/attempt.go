// Package models - Attempt log records.
// An Attempt is one durable row per accepted request. The log is append-only:
// denied requests leave no trace, and old rows are excluded from counts by a
// timestamp filter rather than being mutated.
package models

import (
	"time"

	"github.com/google/uuid"
)

// IdentityAnonymous is used when neither a client IP nor a user ID is known.
const IdentityAnonymous = "anonymous"

// Attempt is one accepted request recorded in the shared attempt log.
type Attempt struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Action     string    `json:"action"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClientIdentity picks the identity a request is attributed to: network
// address first, then authenticated user ID, then the anonymous bucket.
func ClientIdentity(clientIP, userID string) string {
	if clientIP != "" {
		return clientIP
	}
	if userID != "" {
		return userID
	}
	return IdentityAnonymous
}

// Identifier builds the composite accounting key for an action and identity.
func Identifier(action, identity string) string {
	return action + ":" + identity
}

// NewAttempt creates an attempt row for the given action and caller identity,
// stamped with the current time.
func NewAttempt(action, clientIP, userID string, now time.Time) *Attempt {
	return &Attempt{
		ID:         uuid.New().String(),
		Identifier: Identifier(action, ClientIdentity(clientIP, userID)),
		Action:     action,
		ClientIP:   clientIP,
		UserID:     userID,
		CreatedAt:  now,
	}
}
