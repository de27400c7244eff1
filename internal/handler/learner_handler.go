package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// LearnerHandler serves the take-assessment screens.
type LearnerHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewLearnerHandler creates a new LearnerHandler.
func NewLearnerHandler(sessionService *service.ExamSessionService, log zerolog.Logger) *LearnerHandler {
	return &LearnerHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "learner_handler").Logger(),
	}
}

// ListAssessments godoc
// GET /api/v1/learner/assessments
// Lists published assessments with the completed flag for this login.
func (h *LearnerHandler) ListAssessments(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	list, err := h.sessionService.ListForLearner(c.Request.Context(), claims)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": list})
}

// Start godoc
// POST /api/v1/learner/assessments/:id/start
// Starts an attempt and returns the session view.
func (h *LearnerHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.Start(c.Request.Context(), claims, assessmentID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": view})
}

// Current godoc
// GET /api/v1/learner/session
// Returns the running session view.
func (h *LearnerHandler) Current(c *gin.Context) {
	h.respondView(c, func(claims *service.Claims) (exam.View, error) {
		return h.sessionService.Current(c.Request.Context(), claims)
	})
}

// Answer godoc
// PUT /api/v1/learner/session/answers/:question_id
// Records an answer. Multiple-choice values are option indexes as displayed.
func (h *LearnerHandler) Answer(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.respondView(c, func(claims *service.Claims) (exam.View, error) {
		return h.sessionService.RecordAnswer(c.Request.Context(), claims, questionID, req.Value)
	})
}

// Signal godoc
// POST /api/v1/learner/session/signals
// Reports an environment signal (visibility, pointer, key, context menu).
func (h *LearnerHandler) Signal(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SignalRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reaction, err := h.sessionService.Signal(c.Request.Context(), claims, exam.SignalFromRequest(req))
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reaction": reaction})
}

// Submit godoc
// POST /api/v1/learner/session/submit
// Grades and closes the session.
func (h *LearnerHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	res, err := h.sessionService.Submit(c.Request.Context(), claims)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ConfirmTermination godoc
// POST /api/v1/learner/session/terminate
// Acknowledges the multiple-violations warning.
func (h *LearnerHandler) ConfirmTermination(c *gin.Context) {
	h.respondView(c, func(claims *service.Claims) (exam.View, error) {
		return h.sessionService.ConfirmTermination(c.Request.Context(), claims)
	})
}

// Leave godoc
// DELETE /api/v1/learner/session
// Abandons the running session.
func (h *LearnerHandler) Leave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessionService.Leave(c.Request.Context(), claims); err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func (h *LearnerHandler) respondView(c *gin.Context, fn func(claims *service.Claims) (exam.View, error)) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := fn(claims)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}
