package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAccountInactive    ErrCode = "ACCOUNT_INACTIVE"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrTokenRevoked       ErrCode = "TOKEN_REVOKED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrManagerAccessOnly ErrCode = "MANAGER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Catalog ───────────────────────────────────────────────────────
	ErrAssessmentNotDraft ErrCode = "ASSESSMENT_NOT_DRAFT"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrAssessmentInUse    ErrCode = "ASSESSMENT_IN_USE"
	ErrInvalidQuestion    ErrCode = "INVALID_QUESTION"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrAssessmentNotPublished ErrCode = "ASSESSMENT_NOT_PUBLISHED"
	ErrAlreadyCompleted       ErrCode = "ALREADY_COMPLETED"
	ErrSessionActive          ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrNoActiveSession        ErrCode = "NO_ACTIVE_SESSION"
	ErrUnknownQuestion        ErrCode = "UNKNOWN_QUESTION"
	ErrAnswerOutOfRange       ErrCode = "ANSWER_OUT_OF_RANGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal           ErrCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrAccountInactive:
		return "Your account is not active. Please contact the registry."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."
	case ErrTokenRevoked:
		return "You have been signed out. Please sign in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrManagerAccessOnly:
		return "This resource is limited to faculty, staff and administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Catalog ───────────────────────────────────────────────────────
	case ErrAssessmentNotDraft:
		return "Questions can only be changed while the assessment is a draft."
	case ErrNoQuestions:
		return "An assessment needs at least one question before it can be published."
	case ErrAssessmentInUse:
		return "The assessment has exams in progress and cannot be deleted."
	case ErrInvalidQuestion:
		return "The question is incomplete or its answer key is invalid."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrAssessmentNotPublished:
		return "This assessment is not available."
	case ErrAlreadyCompleted:
		return "You have already completed this assessment. It cannot be retaken."
	case ErrSessionActive:
		return "Another exam is already in progress in this browser."
	case ErrNoActiveSession:
		return "There is no exam in progress."
	case ErrUnknownQuestion:
		return "The question is not part of this exam."
	case ErrAnswerOutOfRange:
		return "The selected option does not exist."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please slow down."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	case ErrServiceUnavailable:
		return "The service is shutting down. Please try again shortly."

	default:
		return "An unknown error occurred."
	}
}
