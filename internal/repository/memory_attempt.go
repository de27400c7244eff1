package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// MemoryAttemptStore keeps attempt records for the process lifetime.
type MemoryAttemptStore struct {
	mu      sync.RWMutex
	records []model.AttemptRecord
}

// NewMemoryAttemptStore creates an empty MemoryAttemptStore.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{}
}

// Record implements AttemptStore. Recording the same id twice keeps the first.
func (s *MemoryAttemptStore) Record(_ context.Context, rec model.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == rec.ID {
			return nil
		}
	}
	s.records = append(s.records, rec)
	return nil
}

// Get implements AttemptStore.
func (s *MemoryAttemptStore) Get(_ context.Context, id uuid.UUID) (*model.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// List implements AttemptStore. Newest records come first.
func (s *MemoryAttemptStore) List(_ context.Context, f model.ResultFilter) ([]model.AttemptRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.AttemptRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if f.AssessmentID != nil && r.AssessmentID != *f.AssessmentID {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.State != "" && r.State != f.State {
			continue
		}
		matched = append(matched, r)
	}

	total := len(matched)
	if f.Offset >= total {
		return []model.AttemptRecord{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}
