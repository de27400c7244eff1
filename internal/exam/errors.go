package exam

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is requested outside
	// the state it is permitted in. Callers treat it as a no-op.
	ErrInvalidTransition = errors.New("operation not permitted in current session state")

	ErrAssessmentNotPublished = errors.New("assessment is not published")
	ErrAlreadyCompleted       = errors.New("assessment already completed in this context")
	ErrUnknownQuestion        = errors.New("question is not part of this session")
	ErrAnswerOutOfRange       = errors.New("selected option is out of range")
	ErrSessionClosed          = errors.New("session runner is closed")
)
