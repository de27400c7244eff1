package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// QuestionHandler handles the question bank endpoints.
type QuestionHandler struct {
	catalogService *service.CatalogService
	log            zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(catalogService *service.CatalogService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		catalogService: catalogService,
		log:            log.With().Str("component", "question_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/admin/questions?subject=
func (h *QuestionHandler) List(c *gin.Context) {
	questions, err := h.catalogService.ListQuestions(c.Request.Context(), c.Query("subject"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Create godoc
// POST /api/v1/admin/questions
// Adds a question to the bank.
func (h *QuestionHandler) Create(c *gin.Context) {
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.catalogService.AddQuestion(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// Get godoc
// GET /api/v1/admin/questions/:question_id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "question_id")
	if !ok {
		return
	}

	q, err := h.catalogService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}
