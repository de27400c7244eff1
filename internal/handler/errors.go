package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// errorStatus maps a service or session error to its HTTP status and code.
// Unknown errors are internal.
func errorStatus(err error) (int, response.ErrCode) {
	switch {
	// Auth
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, service.ErrAccountInactive):
		return http.StatusForbidden, response.ErrAccountInactive
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, response.ErrNotFound

	// Catalog
	case errors.Is(err, service.ErrAssessmentNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrAssessmentNotDraft):
		return http.StatusConflict, response.ErrAssessmentNotDraft
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusBadRequest, response.ErrNoQuestions
	case errors.Is(err, service.ErrInvalidStatusChange):
		return http.StatusConflict, response.ErrActionForbidden
	case errors.Is(err, service.ErrAssessmentInUse):
		return http.StatusConflict, response.ErrAssessmentInUse
	case errors.Is(err, service.ErrInvalidQuestion):
		return http.StatusBadRequest, response.ErrInvalidQuestion

	// Exam session
	case errors.Is(err, exam.ErrAssessmentNotPublished):
		return http.StatusConflict, response.ErrAssessmentNotPublished
	case errors.Is(err, exam.ErrAlreadyCompleted):
		return http.StatusConflict, response.ErrAlreadyCompleted
	case errors.Is(err, service.ErrSessionActive):
		return http.StatusConflict, response.ErrSessionActive
	case errors.Is(err, service.ErrNoActiveSession):
		return http.StatusNotFound, response.ErrNoActiveSession
	case errors.Is(err, exam.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, exam.ErrAnswerOutOfRange):
		return http.StatusBadRequest, response.ErrAnswerOutOfRange
	case errors.Is(err, exam.ErrSessionClosed):
		return http.StatusServiceUnavailable, response.ErrServiceUnavailable

	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// fail writes the error response for err, logging internal errors.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	if code == response.ErrInvalidQuestion {
		response.FailWithFields(c, status, code, map[string]string{"detail": err.Error()})
		return
	}
	response.Fail(c, status, code)
}
