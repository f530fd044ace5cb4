// Package queue defines the notification events exchanged over RabbitMQ and
// the publisher/consumer pair that moves them.
package queue

import "time"

// Event types.
const (
	EventUserRegistered         = "user.registered"
	EventPasswordResetRequested = "password.reset.requested"
)

// Event is one notification for the outbound mail collaborator.  ResetToken
// is only set for password reset requests and is the raw single-use token
// the recipient needs; it never appears in application logs.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	ResetToken string    `json:"reset_token,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
