package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates exam session lifecycle states.
type SessionState string

const (
	SessionStateNotStarted SessionState = "not_started"
	SessionStateActive     SessionState = "active"
	SessionStateSubmitted  SessionState = "submitted"
	SessionStateTerminated SessionState = "terminated"
	SessionStateAbandoned  SessionState = "abandoned"
)

// Terminal reports whether no transition leaves this state.
func (s SessionState) Terminal() bool {
	return s == SessionStateSubmitted || s == SessionStateTerminated || s == SessionStateAbandoned
}

// ViolationCategory tags a proctoring violation.
type ViolationCategory string

const (
	ViolationVisibilityLoss  ViolationCategory = "visibility_loss"
	ViolationPointerExit     ViolationCategory = "pointer_exit"
	ViolationBlockedShortcut ViolationCategory = "blocked_shortcut"
	ViolationContextMenu     ViolationCategory = "context_menu"
)

// Violation is one entry of a session's violation log.
type Violation struct {
	Category    ViolationCategory `json:"category"`
	Description string            `json:"description"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// AttemptRecord is the completed-attempt record written when a session
// leaves the active state.
type AttemptRecord struct {
	ID               uuid.UUID         `json:"id"`
	AssessmentID     uuid.UUID         `json:"assessment_id"`
	AssessmentTitle  string            `json:"assessment_title"`
	UserID           string            `json:"user_id"`
	Scope            string            `json:"scope"`
	State            SessionState      `json:"state"`
	Score            *int              `json:"score,omitempty"`
	Answers          map[string]Answer `json:"answers"`
	QuestionOrder    []uuid.UUID       `json:"question_order"`
	Violations       []Violation       `json:"violations"`
	CheatingDetected bool              `json:"cheating_detected"`
	RemainingSeconds int               `json:"remaining_seconds"`
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       time.Time         `json:"finished_at"`
}

// ResultFilter narrows attempt record listings.
type ResultFilter struct {
	AssessmentID *uuid.UUID
	UserID       string
	State        SessionState
	Limit        int
	Offset       int
}

// AnswerRequest records one answer; MC values are indexes as displayed.
type AnswerRequest struct {
	Value Answer `json:"value"`
}

// SignalRequest carries one environment signal from the learner page.
type SignalRequest struct {
	Type  string `json:"type" binding:"required,oneof=visibility_hidden visibility_visible pointer_exit key_down context_menu"`
	Key   string `json:"key" binding:"omitempty,max=32"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}
