// Package feed carries live proctoring events to the security monitor.
package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Event is one entry of the live monitor stream.
type Event struct {
	Type           string             `json:"type"`
	Severity       string             `json:"severity"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	SessionID      uuid.UUID          `json:"session_id"`
	AssessmentID   uuid.UUID          `json:"assessment_id"`
	UserID         string             `json:"user_id"`
	State          model.SessionState `json:"state"`
	Score          *int               `json:"score,omitempty"`
	ViolationCount int                `json:"violation_count"`
	Violation      *model.Violation   `json:"violation,omitempty"`
	At             time.Time          `json:"at"`
}

// Feed publishes events and lets monitors subscribe to them.
type Feed interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events and a function that ends the
	// subscription. The channel is closed once the subscription ends.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}
