package exam

import (
	"strings"
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// SignalType is an environment event reported by the learner page.
type SignalType string

const (
	SignalVisibilityHidden  SignalType = "visibility_hidden"
	SignalVisibilityVisible SignalType = "visibility_visible"
	SignalPointerExit       SignalType = "pointer_exit"
	SignalKeyDown           SignalType = "key_down"
	SignalContextMenu       SignalType = "context_menu"
)

// Signal is one environment event with its keyboard details, if any.
type Signal struct {
	Type  SignalType
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

// SignalFromRequest converts the transport payload into a Signal.
func SignalFromRequest(req model.SignalRequest) Signal {
	return Signal{
		Type:  SignalType(req.Type),
		Key:   req.Key,
		Ctrl:  req.Ctrl,
		Shift: req.Shift,
		Alt:   req.Alt,
		Meta:  req.Meta,
	}
}

// Policy holds the proctoring and timing knobs of a session.
type Policy struct {
	// ViolationThreshold is the violation count that raises the termination warning.
	ViolationThreshold int
	// PenaltyDelay is how long the blur stays after the tab becomes visible again.
	PenaltyDelay time.Duration
	// TerminationGrace auto-confirms a pending termination warning. Zero waits
	// for explicit confirmation.
	TerminationGrace time.Duration
	// LowTimeSeconds marks the remaining time as low in the learner view.
	LowTimeSeconds int
}

// DefaultPolicy returns the stock proctoring policy.
func DefaultPolicy() Policy {
	return Policy{
		ViolationThreshold: 3,
		PenaltyDelay:       2 * time.Second,
		LowTimeSeconds:     300,
	}
}

type shortcut struct {
	key   string
	ctrl  bool
	shift bool
}

// Developer tools and view-source combinations.
var blockedShortcuts = []shortcut{
	{key: "F12"},
	{key: "I", ctrl: true, shift: true},
	{key: "J", ctrl: true, shift: true},
	{key: "U", ctrl: true},
}

// IsBlockedShortcut reports whether a key press matches the deny-list.
// Keys compare case-insensitively; required modifiers must be held.
func IsBlockedShortcut(sig Signal) bool {
	for _, sc := range blockedShortcuts {
		if !strings.EqualFold(sig.Key, sc.key) {
			continue
		}
		if sc.ctrl && !sig.Ctrl {
			continue
		}
		if sc.shift && !sig.Shift {
			continue
		}
		return true
	}
	return false
}

// Observation is the monitor's verdict on a single signal.
type Observation struct {
	Violation *model.Violation
	// Suppress tells the page to prevent the browser default action.
	Suppress bool
	// LiftAfter is non-zero when a blur penalty must be lifted after the delay.
	LiftAfter      time.Duration
	LiftGeneration uint64
	// Lifted is set when the blur was cleared on the spot.
	Lifted bool
}

// Monitor classifies environment signals into violations and tracks the
// visibility penalty. It is owned by a single session and is not safe for
// concurrent use.
type Monitor struct {
	policy     Policy
	tabVisible bool
	blurred    bool
	generation uint64
}

// NewMonitor creates a Monitor for one session.
func NewMonitor(policy Policy) *Monitor {
	return &Monitor{policy: policy, tabVisible: true}
}

// Observe classifies a signal that arrived at the given time.
func (m *Monitor) Observe(sig Signal, at time.Time) Observation {
	clock := at.Format("15:04:05")

	switch sig.Type {
	case SignalVisibilityHidden:
		m.tabVisible = false
		m.blurred = true
		m.generation++
		return Observation{Violation: &model.Violation{
			Category:    model.ViolationVisibilityLoss,
			Description: "Tab switched at " + clock,
			OccurredAt:  at,
		}}

	case SignalVisibilityVisible:
		m.tabVisible = true
		if !m.blurred {
			return Observation{}
		}
		if m.policy.PenaltyDelay <= 0 {
			m.blurred = false
			return Observation{Lifted: true}
		}
		return Observation{LiftAfter: m.policy.PenaltyDelay, LiftGeneration: m.generation}

	case SignalPointerExit:
		return Observation{Violation: &model.Violation{
			Category:    model.ViolationPointerExit,
			Description: "Mouse left browser at " + clock,
			OccurredAt:  at,
		}}

	case SignalContextMenu:
		return Observation{Suppress: true, Violation: &model.Violation{
			Category:    model.ViolationContextMenu,
			Description: "Right-click attempted at " + clock,
			OccurredAt:  at,
		}}

	case SignalKeyDown:
		if !IsBlockedShortcut(sig) {
			return Observation{}
		}
		return Observation{Suppress: true, Violation: &model.Violation{
			Category:    model.ViolationBlockedShortcut,
			Description: "Developer tools attempt at " + clock,
			OccurredAt:  at,
		}}
	}

	return Observation{}
}

// LiftPenalty clears the blur if no newer visibility loss happened since the
// lift was scheduled and the tab is visible. It reports whether anything changed.
func (m *Monitor) LiftPenalty(generation uint64) bool {
	if !m.blurred || !m.tabVisible || generation != m.generation {
		return false
	}
	m.blurred = false
	return true
}

// Blurred reports whether the visibility penalty is applied.
func (m *Monitor) Blurred() bool { return m.blurred }

// TabVisible reports the last known page visibility.
func (m *Monitor) TabVisible() bool { return m.tabVisible }

// warningText is the learner-facing message for a violation category.
func warningText(c model.ViolationCategory) string {
	switch c {
	case model.ViolationVisibilityLoss:
		return "Switching tabs is not allowed during the exam"
	case model.ViolationPointerExit:
		return "Moving cursor outside browser is not allowed"
	case model.ViolationBlockedShortcut:
		return "Developer tools are not allowed during the exam"
	case model.ViolationContextMenu:
		return "Right-click is not allowed during the exam"
	default:
		return "Suspicious activity detected"
	}
}
