package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// ResultHandler serves completed attempt records.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

type listResultsQuery struct {
	AssessmentID string `form:"assessment_id" binding:"omitempty,uuid"`
	UserID       string `form:"user_id" binding:"omitempty,max=64"`
	State        string `form:"state" binding:"omitempty,oneof=submitted terminated abandoned"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PerPage      int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// List godoc
// GET /api/v1/admin/results?assessment_id=&user_id=&state=&page=&per_page=
func (h *ResultHandler) List(c *gin.Context) {
	var q listResultsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	filter := model.ResultFilter{
		UserID: q.UserID,
		State:  model.SessionState(q.State),
	}
	if q.AssessmentID != "" {
		id, err := uuid.Parse(q.AssessmentID)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.AssessmentID = &id
	}

	records, pagination, err := h.resultService.List(c.Request.Context(), filter, q.Page, q.PerPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": records}, pagination)
}

// Get godoc
// GET /api/v1/admin/results/:id
func (h *ResultHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.resultService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": detail})
}
