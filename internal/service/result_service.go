package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/response"
)

// ErrResultNotFound is returned for an unknown attempt record.
var ErrResultNotFound = errors.New("result not found")

// ResultDetail is an attempt record with its per-question breakdown. The
// breakdown is absent when the assessment no longer exists.
type ResultDetail struct {
	model.AttemptRecord
	Breakdown *exam.Breakdown `json:"breakdown,omitempty"`
}

// ResultService serves completed attempt records.
type ResultService struct {
	store   repository.AttemptStore
	catalog *CatalogService
}

// NewResultService creates a new ResultService.
func NewResultService(store repository.AttemptStore, catalog *CatalogService) *ResultService {
	return &ResultService{store: store, catalog: catalog}
}

// List returns attempt records with pagination.
func (s *ResultService) List(ctx context.Context, filter model.ResultFilter, page, perPage int) ([]model.AttemptRecord, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	records, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("list results: %w", err)
	}
	if records == nil {
		records = []model.AttemptRecord{}
	}

	return records, response.NewPagination(page, perPage, total), nil
}

// Get returns one attempt record with its breakdown.
func (s *ResultService) Get(ctx context.Context, id uuid.UUID) (*ResultDetail, error) {
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	detail := &ResultDetail{AttemptRecord: *rec}
	if rec.State == model.SessionStateAbandoned {
		return detail, nil
	}

	assessment, err := s.catalog.GetByID(ctx, rec.AssessmentID)
	if errors.Is(err, ErrAssessmentNotFound) {
		return detail, nil
	}
	if err != nil {
		return nil, err
	}

	answers := make(map[uuid.UUID]model.Answer, len(rec.Answers))
	for k, v := range rec.Answers {
		qid, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		answers[qid] = v
	}
	b := exam.Evaluate(assessment.Questions, answers)
	detail.Breakdown = &b
	return detail, nil
}
