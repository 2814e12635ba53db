package entity

import "time"

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent is the JSON payload put on the RabbitMQ user events queue.
// User is nil for deletions.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	User       *User     `json:"user,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
