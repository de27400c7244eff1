package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// Catalog errors.
var (
	ErrAssessmentNotFound  = errors.New("assessment not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrAssessmentNotDraft  = errors.New("question set can only change while the assessment is a draft")
	ErrNoQuestions         = errors.New("assessment has no questions")
	ErrInvalidStatusChange = errors.New("assessment status change not allowed")
	ErrAssessmentInUse     = errors.New("assessment has active sessions")
	ErrInvalidQuestion     = errors.New("invalid question")
)

// AssessmentFilter narrows the management listing.
type AssessmentFilter struct {
	Status model.AssessmentStatus
	Search string
}

// CatalogService handles assessment and question bank business logic.
type CatalogService struct {
	store repository.CatalogStore
	inUse func(assessmentID uuid.UUID) bool
	now   func() time.Time
	log   zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store repository.CatalogStore, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		store: store,
		inUse: func(uuid.UUID) bool { return false },
		now:   time.Now,
		log:   log.With().Str("component", "catalog_service").Logger(),
	}
}

// SetInUse installs the check used to refuse deleting an assessment that
// still has running sessions.
func (s *CatalogService) SetInUse(fn func(assessmentID uuid.UUID) bool) {
	if fn != nil {
		s.inUse = fn
	}
}

// ListPublished returns the assessments learners may take.
func (s *CatalogService) ListPublished(ctx context.Context) ([]model.Assessment, error) {
	return s.store.ListAssessments(ctx, model.AssessmentStatusPublished)
}

// List returns assessments matching the filter. Search matches title or
// subject, case-insensitively.
func (s *CatalogService) List(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error) {
	all, err := s.store.ListAssessments(ctx, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		return all, nil
	}

	out := make([]model.Assessment, 0, len(all))
	for _, a := range all {
		if strings.Contains(strings.ToLower(a.Title), search) ||
			strings.Contains(strings.ToLower(a.Subject), search) {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetByID retrieves one assessment.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

// Create stores a new draft assessment. Omitted flags default to shuffled
// questions and options, an enforced time limit and no proctoring.
func (s *CatalogService) Create(ctx context.Context, req model.CreateAssessmentRequest, createdBy string) (*model.Assessment, error) {
	now := s.now()
	a := &model.Assessment{
		ID:               uuid.New(),
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		Subject:          strings.TrimSpace(req.Subject),
		DurationMinutes:  req.DurationMinutes,
		Questions:        []model.Question{},
		Status:           model.AssessmentStatusDraft,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
		ScheduledAt:      req.ScheduledAt,
		AllowedAttempts:  req.AllowedAttempts,
		ShuffleQuestions: boolOr(req.ShuffleQuestions, true),
		ShuffleOptions:   boolOr(req.ShuffleOptions, true),
		EnforceTimeLimit: boolOr(req.EnforceTimeLimit, true),
		EnableProctoring: boolOr(req.EnableProctoring, false),
	}
	if a.AllowedAttempts < 1 {
		a.AllowedAttempts = 1
	}

	for _, qid := range req.QuestionIDs {
		if a.HasQuestion(qid) {
			continue
		}
		q, err := s.GetQuestion(ctx, qid)
		if err != nil {
			return nil, err
		}
		a.Questions = append(a.Questions, q.Clone())
	}
	a.RecomputeTotalPoints()

	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	s.log.Info().Str("assessment_id", a.ID.String()).Str("created_by", createdBy).Msg("Assessment created")
	return a, nil
}

// Update edits metadata, flags, schedule and attempts. The question set is
// untouched.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, req model.UpdateAssessmentRequest) (*model.Assessment, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		a.Description = strings.TrimSpace(*req.Description)
	}
	if req.Subject != nil {
		a.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.DurationMinutes != nil {
		a.DurationMinutes = *req.DurationMinutes
	}
	if req.ScheduledAt != nil {
		a.ScheduledAt = req.ScheduledAt
	}
	if req.AllowedAttempts != nil {
		a.AllowedAttempts = *req.AllowedAttempts
	}
	a.ShuffleQuestions = boolOr(req.ShuffleQuestions, a.ShuffleQuestions)
	a.ShuffleOptions = boolOr(req.ShuffleOptions, a.ShuffleOptions)
	a.EnforceTimeLimit = boolOr(req.EnforceTimeLimit, a.EnforceTimeLimit)
	a.EnableProctoring = boolOr(req.EnableProctoring, a.EnableProctoring)
	a.RecomputeTotalPoints()
	a.UpdatedAt = s.now()

	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	return a, nil
}

// Publish makes a draft with at least one question available to learners.
func (s *CatalogService) Publish(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssessmentStatusDraft {
		return nil, ErrInvalidStatusChange
	}
	if len(a.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	return s.setStatus(ctx, a, model.AssessmentStatusPublished)
}

// Archive retires a published assessment.
func (s *CatalogService) Archive(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssessmentStatusPublished {
		return nil, ErrInvalidStatusChange
	}
	return s.setStatus(ctx, a, model.AssessmentStatusArchived)
}

// Delete removes an assessment that no running session is using.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if s.inUse(id) {
		return ErrAssessmentInUse
	}
	if err := s.store.DeleteAssessment(ctx, id); err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	s.log.Info().Str("assessment_id", id.String()).Msg("Assessment deleted")
	return nil
}

// AttachQuestion copies a bank question into a draft's snapshot. Attaching
// the same question twice is a no-op.
func (s *CatalogService) AttachQuestion(ctx context.Context, assessmentID, questionID uuid.UUID) (*model.Assessment, error) {
	a, err := s.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssessmentStatusDraft {
		return nil, ErrAssessmentNotDraft
	}
	if a.HasQuestion(questionID) {
		return a, nil
	}

	q, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	a.Questions = append(a.Questions, q.Clone())
	a.RecomputeTotalPoints()
	a.UpdatedAt = s.now()

	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	return a, nil
}

// DetachQuestion removes a question from a draft's snapshot.
func (s *CatalogService) DetachQuestion(ctx context.Context, assessmentID, questionID uuid.UUID) (*model.Assessment, error) {
	a, err := s.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssessmentStatusDraft {
		return nil, ErrAssessmentNotDraft
	}
	if !a.HasQuestion(questionID) {
		return nil, ErrQuestionNotFound
	}

	kept := a.Questions[:0]
	for _, q := range a.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	a.Questions = kept
	a.RecomputeTotalPoints()
	a.UpdatedAt = s.now()

	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	return a, nil
}

// Stats aggregates the dashboard cards.
func (s *CatalogService) Stats(ctx context.Context) (*model.AssessmentStats, error) {
	all, err := s.store.ListAssessments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	bank, err := s.store.ListQuestions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	stats := &model.AssessmentStats{
		TotalAssessments: len(all),
		TotalQuestions:   len(bank),
	}
	minutes := 0
	for _, a := range all {
		if a.Status == model.AssessmentStatusPublished {
			stats.Published++
		}
		minutes += a.DurationMinutes
	}
	if len(all) > 0 {
		stats.AvgDurationMinutes = int(math.Round(float64(minutes) / float64(len(all))))
	}
	return stats, nil
}

// AddQuestion validates and stores a new bank question.
func (s *CatalogService) AddQuestion(ctx context.Context, req model.AddQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		ID:            uuid.New(),
		QuestionText:  strings.TrimSpace(req.QuestionText),
		Type:          model.QuestionType(req.Type),
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		Difficulty:    model.Difficulty(req.Difficulty),
		Subject:       strings.TrimSpace(req.Subject),
		Topic:         strings.TrimSpace(req.Topic),
		CreatedAt:     s.now(),
	}
	if q.QuestionText == "" || q.Subject == "" || q.Topic == "" {
		return nil, fmt.Errorf("%w: text, subject and topic are required", ErrInvalidQuestion)
	}
	if q.Points < 1 {
		q.Points = 1
	}
	if q.Difficulty == "" {
		q.Difficulty = model.DifficultyMedium
	}
	if q.CorrectAnswer != nil && q.CorrectAnswer.IsZero() {
		q.CorrectAnswer = nil
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		for _, opt := range req.Options {
			if opt = strings.TrimSpace(opt); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: multiple choice needs at least two options", ErrInvalidQuestion)
		}
		if q.CorrectAnswer == nil || q.CorrectAnswer.Choice == nil ||
			*q.CorrectAnswer.Choice < 0 || *q.CorrectAnswer.Choice >= len(q.Options) {
			return nil, fmt.Errorf("%w: correct answer must be an option index", ErrInvalidQuestion)
		}
	case model.QuestionTypeTrueFalse:
		if q.CorrectAnswer == nil || q.CorrectAnswer.Text == nil ||
			(*q.CorrectAnswer.Text != "true" && *q.CorrectAnswer.Text != "false") {
			return nil, fmt.Errorf("%w: correct answer must be true or false", ErrInvalidQuestion)
		}
	default:
		if q.CorrectAnswer != nil && q.CorrectAnswer.Text == nil {
			return nil, fmt.Errorf("%w: reference answer must be text", ErrInvalidQuestion)
		}
	}

	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// ListQuestions returns bank questions, optionally for one subject.
func (s *CatalogService) ListQuestions(ctx context.Context, subject string) ([]model.Question, error) {
	return s.store.ListQuestions(ctx, strings.TrimSpace(subject))
}

// GetQuestion retrieves one bank question.
func (s *CatalogService) GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *CatalogService) setStatus(ctx context.Context, a *model.Assessment, status model.AssessmentStatus) (*model.Assessment, error) {
	a.Status = status
	a.UpdatedAt = s.now()
	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	s.log.Info().
		Str("assessment_id", a.ID.String()).
		Str("status", string(status)).
		Msg("Assessment status changed")
	return a, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
