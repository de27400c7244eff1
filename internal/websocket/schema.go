package websocket

import (
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer             Action = "answer"
	ActionSignal             Action = "signal"
	ActionSubmit             Action = "submit"
	ActionConfirmTermination Action = "confirm_termination"
	ActionLeave              Action = "leave"
	ActionPing               Action = "ping"
)

// Request is one client message. Fields not used by the action are ignored.
type Request struct {
	Action Action `json:"action"`

	// answer
	QuestionID string       `json:"question_id,omitempty"`
	Value      model.Answer `json:"value"`

	// signal
	Signal *model.SignalRequest `json:"signal,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventNotification Event = "notification"
	EventState        Event = "state"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// NotificationEvent forwards a session notification (toast).
type NotificationEvent struct {
	Event        Event             `json:"event"`
	Notification exam.Notification `json:"notification"`
}

// StateEvent carries the learner view after a change.
type StateEvent struct {
	Event   Event     `json:"event"`
	Session exam.View `json:"session"`
	// Reaction is set in reply to a signal.
	Reaction *exam.Reaction `json:"reaction,omitempty"`
}

// ErrorEvent reports a refused or malformed request.
type ErrorEvent struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongEvent struct {
	Event Event `json:"event"`
}
