package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates the lifecycle states of an assessment.
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "draft"
	AssessmentStatusPublished AssessmentStatus = "published"
	AssessmentStatusArchived  AssessmentStatus = "archived"
)

// Assessment is an exam definition with its own snapshot of questions.
type Assessment struct {
	ID               uuid.UUID        `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Subject          string           `json:"subject"`
	DurationMinutes  int              `json:"duration_minutes"`
	TotalPoints      int              `json:"total_points"`
	Questions        []Question       `json:"questions"`
	Status           AssessmentStatus `json:"status"`
	CreatedBy        string           `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ScheduledAt      *time.Time       `json:"scheduled_at,omitempty"`
	AllowedAttempts  int              `json:"allowed_attempts"`
	ShuffleQuestions bool             `json:"shuffle_questions"`
	ShuffleOptions   bool             `json:"shuffle_options"`
	EnforceTimeLimit bool             `json:"enforce_time_limit"`
	EnableProctoring bool             `json:"enable_proctoring"`
}

// DurationSeconds is the initial countdown value for a session.
func (a *Assessment) DurationSeconds() int {
	return a.DurationMinutes * 60
}

// RecomputeTotalPoints sets TotalPoints to the sum of question points.
func (a *Assessment) RecomputeTotalPoints() {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	a.TotalPoints = total
}

// HasQuestion reports whether a question id is part of the snapshot.
func (a *Assessment) HasQuestion(id uuid.UUID) bool {
	for _, q := range a.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy including the question snapshot.
func (a Assessment) Clone() Assessment {
	c := a
	if a.Questions != nil {
		c.Questions = make([]Question, len(a.Questions))
		for i, q := range a.Questions {
			c.Questions[i] = q.Clone()
		}
	}
	if a.ScheduledAt != nil {
		t := *a.ScheduledAt
		c.ScheduledAt = &t
	}
	return c
}

// AssessmentSummary is the learner-facing listing entry (no answer keys).
type AssessmentSummary struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Subject          string     `json:"subject"`
	DurationMinutes  int        `json:"duration_minutes"`
	QuestionCount    int        `json:"question_count"`
	TotalPoints      int        `json:"total_points"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
	EnableProctoring bool       `json:"enable_proctoring"`
	Completed        bool       `json:"completed"`
}

// Summarize builds the learner listing entry.
func (a *Assessment) Summarize(completed bool) AssessmentSummary {
	return AssessmentSummary{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		Subject:          a.Subject,
		DurationMinutes:  a.DurationMinutes,
		QuestionCount:    len(a.Questions),
		TotalPoints:      a.TotalPoints,
		ScheduledAt:      a.ScheduledAt,
		EnableProctoring: a.EnableProctoring,
		Completed:        completed,
	}
}

// AssessmentStats backs the management dashboard cards.
type AssessmentStats struct {
	TotalAssessments   int `json:"total_assessments"`
	Published          int `json:"published"`
	TotalQuestions     int `json:"total_questions"`
	AvgDurationMinutes int `json:"avg_duration_minutes"`
}

// CreateAssessmentRequest is the payload for creating a new draft assessment.
// Flags default to the management screen defaults when omitted.
type CreateAssessmentRequest struct {
	Title            string      `json:"title" binding:"required,notblank,min=3,max=255"`
	Description      string      `json:"description" binding:"omitempty,max=2000"`
	Subject          string      `json:"subject" binding:"required,max=255"`
	DurationMinutes  int         `json:"duration_minutes" binding:"required,min=1,max=480"`
	ScheduledAt      *time.Time  `json:"scheduled_at" binding:"omitempty"`
	AllowedAttempts  int         `json:"allowed_attempts" binding:"omitempty,min=1,max=10"`
	ShuffleQuestions *bool       `json:"shuffle_questions"`
	ShuffleOptions   *bool       `json:"shuffle_options"`
	EnforceTimeLimit *bool       `json:"enforce_time_limit"`
	EnableProctoring *bool       `json:"enable_proctoring"`
	QuestionIDs      []uuid.UUID `json:"question_ids" binding:"omitempty,dive"`
}

// UpdateAssessmentRequest is the payload for editing an assessment.
type UpdateAssessmentRequest struct {
	Title            *string    `json:"title" binding:"omitempty,min=3,max=255"`
	Description      *string    `json:"description" binding:"omitempty,max=2000"`
	Subject          *string    `json:"subject" binding:"omitempty,max=255"`
	DurationMinutes  *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	ScheduledAt      *time.Time `json:"scheduled_at" binding:"omitempty"`
	AllowedAttempts  *int       `json:"allowed_attempts" binding:"omitempty,min=1,max=10"`
	ShuffleQuestions *bool      `json:"shuffle_questions"`
	ShuffleOptions   *bool      `json:"shuffle_options"`
	EnforceTimeLimit *bool      `json:"enforce_time_limit"`
	EnableProctoring *bool      `json:"enable_proctoring"`
}

// AttachQuestionRequest adds a bank question to a draft assessment.
type AttachQuestionRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}
