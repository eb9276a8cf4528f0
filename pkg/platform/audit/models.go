package audit

import (
	"context"
	"time"
)

// Actions emitted by the verification workflow.
const (
	ActionSubmitted = "verification.submitted"
	ActionApproved  = "verification.approved"
	ActionRejected  = "verification.rejected"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
}
