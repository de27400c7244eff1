package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// MemoryCatalog is the in-process CatalogStore. Every read returns copies.
type MemoryCatalog struct {
	mu          sync.RWMutex
	assessments []model.Assessment
	questions   []model.Question
}

// NewMemoryCatalog creates a MemoryCatalog seeded with the given records.
func NewMemoryCatalog(questions []model.Question, assessments []model.Assessment) *MemoryCatalog {
	c := &MemoryCatalog{}
	for _, q := range questions {
		c.questions = append(c.questions, q.Clone())
	}
	for _, a := range assessments {
		c.assessments = append(c.assessments, a.Clone())
	}
	return c
}

// ListAssessments implements CatalogStore.
func (c *MemoryCatalog) ListAssessments(_ context.Context, status model.AssessmentStatus) ([]model.Assessment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Assessment, 0, len(c.assessments))
	for _, a := range c.assessments {
		if status == "" || a.Status == status {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// GetAssessment implements CatalogStore.
func (c *MemoryCatalog) GetAssessment(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, a := range c.assessments {
		if a.ID == id {
			cp := a.Clone()
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// SaveAssessment implements CatalogStore. Unknown ids are appended.
func (c *MemoryCatalog) SaveAssessment(_ context.Context, a *model.Assessment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	for i := range c.assessments {
		if c.assessments[i].ID == a.ID {
			c.assessments[i] = a.Clone()
			return nil
		}
	}
	c.assessments = append(c.assessments, a.Clone())
	return nil
}

// DeleteAssessment implements CatalogStore.
func (c *MemoryCatalog) DeleteAssessment(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.assessments {
		if c.assessments[i].ID == id {
			c.assessments = append(c.assessments[:i], c.assessments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ListQuestions implements CatalogStore.
func (c *MemoryCatalog) ListQuestions(_ context.Context, subject string) ([]model.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Question, 0, len(c.questions))
	for _, q := range c.questions {
		if subject == "" || strings.EqualFold(q.Subject, subject) {
			out = append(out, q.Clone())
		}
	}
	return out, nil
}

// GetQuestion implements CatalogStore.
func (c *MemoryCatalog) GetQuestion(_ context.Context, id uuid.UUID) (*model.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, q := range c.questions {
		if q.ID == id {
			cp := q.Clone()
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// CreateQuestion implements CatalogStore.
func (c *MemoryCatalog) CreateQuestion(_ context.Context, q *model.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	c.questions = append(c.questions, q.Clone())
	return nil
}
