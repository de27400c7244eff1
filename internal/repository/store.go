package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// CatalogStore persists assessments and the question bank.
type CatalogStore interface {
	// ListAssessments returns assessments in creation order. An empty status
	// returns all of them.
	ListAssessments(ctx context.Context, status model.AssessmentStatus) ([]model.Assessment, error)
	GetAssessment(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	SaveAssessment(ctx context.Context, a *model.Assessment) error
	DeleteAssessment(ctx context.Context, id uuid.UUID) error

	ListQuestions(ctx context.Context, subject string) ([]model.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error)
	CreateQuestion(ctx context.Context, q *model.Question) error
}

// AttemptStore persists completed attempt records.
type AttemptStore interface {
	Record(ctx context.Context, rec model.AttemptRecord) error
	Get(ctx context.Context, id uuid.UUID) (*model.AttemptRecord, error)
	List(ctx context.Context, filter model.ResultFilter) ([]model.AttemptRecord, int, error)
}
