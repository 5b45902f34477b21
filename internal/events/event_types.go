package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventLoginThrottled  EventType = "login_throttled"
	EventTokenRefreshed  EventType = "token_refreshed"
	EventPasswordChanged EventType = "password_changed"
)

// Event represents an authentication event emitted by services. Subject is
// the claimed email; it may not belong to an existing user.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(t EventType, subject, userID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Subject:   subject,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TokenRefreshedPayload payload.
type TokenRefreshedPayload struct {
	Rotated bool `json:"rotated"`
}

// LoginThrottledPayload payload.
type LoginThrottledPayload struct {
	RetryAfterSeconds int `json:"retry_after_seconds"`
}
