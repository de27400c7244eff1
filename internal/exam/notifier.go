package exam

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Severity mirrors the toast variants of the learner page.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityWarning     Severity = "warning"
	SeverityDestructive Severity = "destructive"
)

// NotificationKind is the category of a user-facing message.
type NotificationKind string

const (
	NotifyStarted            NotificationKind = "started"
	NotifyViolationWarning   NotificationKind = "violation_warning"
	NotifyTerminationWarning NotificationKind = "termination_warning"
	NotifySubmitted          NotificationKind = "submitted"
	NotifyTerminated         NotificationKind = "terminated"
	NotifyAbandoned          NotificationKind = "abandoned"
	NotifyPenaltyLifted      NotificationKind = "penalty_lifted"
)

// Notification is a fire-and-forget message about a session transition.
type Notification struct {
	Kind           NotificationKind   `json:"kind"`
	Severity       Severity           `json:"severity"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Scope          string             `json:"-"`
	UserID         string             `json:"user_id"`
	SessionID      uuid.UUID          `json:"session_id"`
	AssessmentID   uuid.UUID          `json:"assessment_id"`
	State          model.SessionState `json:"state"`
	Score          *int               `json:"score,omitempty"`
	ViolationCount int                `json:"violation_count"`
	Violation      *model.Violation   `json:"violation,omitempty"`
	RequiresAction bool               `json:"requires_action,omitempty"`
	At             time.Time          `json:"at"`
}

// Notifier delivers notifications. Implementations must not block the caller
// for long; delivery failures are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// MultiNotifier fans a notification out to several notifiers in order.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
