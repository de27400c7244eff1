package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// AssessmentHandler handles the assessment management endpoints.
type AssessmentHandler struct {
	catalogService *service.CatalogService
	log            zerolog.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(catalogService *service.CatalogService, log zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		catalogService: catalogService,
		log:            log.With().Str("component", "assessment_handler").Logger(),
	}
}

type listAssessmentsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=draft published archived"`
	Search string `form:"search" binding:"omitempty,max=255"`
}

// List godoc
// GET /api/v1/admin/assessments?status=&search=
func (h *AssessmentHandler) List(c *gin.Context) {
	var q listAssessmentsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	list, err := h.catalogService.List(c.Request.Context(), service.AssessmentFilter{
		Status: model.AssessmentStatus(q.Status),
		Search: q.Search,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": list})
}

// Get godoc
// GET /api/v1/admin/assessments/:id
func (h *AssessmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	a, err := h.catalogService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": a})
}

// Create godoc
// POST /api/v1/admin/assessments
// Creates a new draft assessment.
func (h *AssessmentHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.catalogService.Create(c.Request.Context(), req, claims.Email)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assessment": a})
}

// Update godoc
// PATCH /api/v1/admin/assessments/:id
func (h *AssessmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.catalogService.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": a})
}

// Delete godoc
// DELETE /api/v1/admin/assessments/:id
func (h *AssessmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.Delete(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Publish godoc
// POST /api/v1/admin/assessments/:id/publish
func (h *AssessmentHandler) Publish(c *gin.Context) {
	h.transition(c, h.catalogService.Publish)
}

// Archive godoc
// POST /api/v1/admin/assessments/:id/archive
func (h *AssessmentHandler) Archive(c *gin.Context) {
	h.transition(c, h.catalogService.Archive)
}

// AttachQuestion godoc
// POST /api/v1/admin/assessments/:id/questions
// Copies a bank question into a draft.
func (h *AssessmentHandler) AttachQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.AttachQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.catalogService.AttachQuestion(c.Request.Context(), id, req.QuestionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": a})
}

// DetachQuestion godoc
// DELETE /api/v1/admin/assessments/:id/questions/:question_id
func (h *AssessmentHandler) DetachQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	questionID, ok := parseID(c, "question_id")
	if !ok {
		return
	}

	a, err := h.catalogService.DetachQuestion(c.Request.Context(), id, questionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": a})
}

// Stats godoc
// GET /api/v1/admin/assessments/stats
func (h *AssessmentHandler) Stats(c *gin.Context) {
	stats, err := h.catalogService.Stats(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

func (h *AssessmentHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*model.Assessment, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	a, err := fn(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": a})
}

// parseID reads a UUID path parameter, writing the error response itself.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
