package service

import (
	"context"
	"testing"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestCatalog_CreateDefaults(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	a, err := s.catalog.Create(ctx, model.CreateAssessmentRequest{
		Title:           "Algorithms Quiz",
		Subject:         "Computer Science",
		DurationMinutes: 20,
	}, "Prof. Jane Smith")
	require.NoError(t, err)

	assert.Equal(t, model.AssessmentStatusDraft, a.Status)
	assert.True(t, a.ShuffleQuestions)
	assert.True(t, a.ShuffleOptions)
	assert.True(t, a.EnforceTimeLimit)
	assert.False(t, a.EnableProctoring)
	assert.Equal(t, 1, a.AllowedAttempts)
	assert.Empty(t, a.Questions)
	assert.Zero(t, a.TotalPoints)
}

func TestCatalog_AttachPublishLifecycle(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	a, err := s.catalog.Create(ctx, model.CreateAssessmentRequest{
		Title:            "Data Structures",
		Subject:          "Computer Science",
		DurationMinutes:  10,
		EnableProctoring: boolPtr(true),
	}, "Prof. Jane Smith")
	require.NoError(t, err)

	_, err = s.catalog.Publish(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNoQuestions)

	a, err = s.catalog.AttachQuestion(ctx, a.ID, queueID)
	require.NoError(t, err)
	a, err = s.catalog.AttachQuestion(ctx, a.ID, queueID)
	require.NoError(t, err)
	require.Len(t, a.Questions, 1, "attaching twice is a no-op")

	a, err = s.catalog.AttachQuestion(ctx, a.ID, tfID)
	require.NoError(t, err)
	assert.Equal(t, 3, a.TotalPoints)

	a, err = s.catalog.DetachQuestion(ctx, a.ID, tfID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalPoints)

	a, err = s.catalog.Publish(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssessmentStatusPublished, a.Status)

	_, err = s.catalog.AttachQuestion(ctx, a.ID, tfID)
	assert.ErrorIs(t, err, ErrAssessmentNotDraft)
	_, err = s.catalog.DetachQuestion(ctx, a.ID, queueID)
	assert.ErrorIs(t, err, ErrAssessmentNotDraft)

	_, err = s.catalog.Publish(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)

	a, err = s.catalog.Archive(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssessmentStatusArchived, a.Status)

	_, err = s.catalog.Archive(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)
}

func TestCatalog_ArchiveRequiresPublished(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	_, err := s.catalog.Archive(ctx, draftID)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)

	a, err := s.catalog.GetByID(ctx, draftID)
	require.NoError(t, err)
	assert.Equal(t, model.AssessmentStatusDraft, a.Status)
}

func TestCatalog_UpdateKeepsQuestionSet(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	title := "Midterm (revised)"
	minutes := 90
	a, err := s.catalog.Update(ctx, midtermID, model.UpdateAssessmentRequest{
		Title:            &title,
		DurationMinutes:  &minutes,
		EnableProctoring: boolPtr(false),
	})
	require.NoError(t, err)

	assert.Equal(t, title, a.Title)
	assert.Equal(t, 90, a.DurationMinutes)
	assert.False(t, a.EnableProctoring)
	assert.True(t, a.ShuffleQuestions)
	assert.Len(t, a.Questions, 3)
	assert.Equal(t, 13, a.TotalPoints)
}

func TestCatalog_SnapshotIsolatedFromBank(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	before, err := s.catalog.GetByID(ctx, practiceID)
	require.NoError(t, err)
	before.Questions[0].QuestionText = "mutated"

	after, err := s.catalog.GetByID(ctx, practiceID)
	require.NoError(t, err)
	assert.Equal(t, "What is the capital of Rwanda?", after.Questions[0].QuestionText)
}

func TestCatalog_ListFilterAndStats(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	published, err := s.catalog.List(ctx, AssessmentFilter{Status: model.AssessmentStatusPublished})
	require.NoError(t, err)
	assert.Len(t, published, 2)

	geo, err := s.catalog.List(ctx, AssessmentFilter{Search: "geography"})
	require.NoError(t, err)
	assert.Len(t, geo, 2)

	stats, err := s.catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAssessments)
	assert.Equal(t, 2, stats.Published)
	assert.Equal(t, 4, stats.TotalQuestions)
	// (120 + 30 + 15) / 3 = 55
	assert.Equal(t, 55, stats.AvgDurationMinutes)
}

func TestCatalog_Delete(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	require.NoError(t, s.catalog.Delete(ctx, draftID))
	_, err := s.catalog.GetByID(ctx, draftID)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	assert.ErrorIs(t, s.catalog.Delete(ctx, draftID), ErrAssessmentNotFound)
}

func TestCatalog_DeleteRefusedWhileInUse(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	_, err := s.sessions.Start(ctx, learner("ctx-1", "1"), practiceID)
	require.NoError(t, err)

	assert.ErrorIs(t, s.catalog.Delete(ctx, practiceID), ErrAssessmentInUse)
}

func TestCatalog_AddQuestion(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	tests := []struct {
		name    string
		req     model.AddQuestionRequest
		wantErr bool
		check   func(t *testing.T, q *model.Question)
	}{
		{
			name: "multiple choice drops blank options and defaults",
			req: model.AddQuestionRequest{
				QuestionText:  "Capital of Kenya?",
				Type:          "multiple-choice",
				Options:       []string{"Nairobi", " ", "Mombasa", ""},
				CorrectAnswer: answerPtr(model.ChoiceAnswer(0)),
				Subject:       "Geography",
				Topic:         "African Capitals",
			},
			check: func(t *testing.T, q *model.Question) {
				assert.Equal(t, []string{"Nairobi", "Mombasa"}, q.Options)
				assert.Equal(t, 1, q.Points)
				assert.Equal(t, model.DifficultyMedium, q.Difficulty)
			},
		},
		{
			name: "multiple choice needs two options",
			req: model.AddQuestionRequest{
				QuestionText:  "Only one?",
				Type:          "multiple-choice",
				Options:       []string{"Yes", ""},
				CorrectAnswer: answerPtr(model.ChoiceAnswer(0)),
				Subject:       "Logic",
				Topic:         "Sets",
			},
			wantErr: true,
		},
		{
			name: "multiple choice key out of range",
			req: model.AddQuestionRequest{
				QuestionText:  "Pick",
				Type:          "multiple-choice",
				Options:       []string{"A", "B"},
				CorrectAnswer: answerPtr(model.ChoiceAnswer(5)),
				Subject:       "Logic",
				Topic:         "Sets",
			},
			wantErr: true,
		},
		{
			name: "true-false key must be true or false",
			req: model.AddQuestionRequest{
				QuestionText:  "The sky is green.",
				Type:          "true-false",
				CorrectAnswer: answerPtr(model.TextAnswer("maybe")),
				Subject:       "Science",
				Topic:         "Optics",
			},
			wantErr: true,
		},
		{
			name: "essay without key",
			req: model.AddQuestionRequest{
				QuestionText: "Describe recursion.",
				Type:         "essay",
				Points:       5,
				Difficulty:   "hard",
				Subject:      "Computer Science",
				Topic:        "Recursion",
			},
			check: func(t *testing.T, q *model.Question) {
				assert.Nil(t, q.CorrectAnswer)
				assert.Equal(t, 5, q.Points)
				assert.Equal(t, model.DifficultyHard, q.Difficulty)
			},
		},
		{
			name: "blank topic",
			req: model.AddQuestionRequest{
				QuestionText: "Anything",
				Type:         "essay",
				Subject:      "History",
				Topic:        "   ",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := s.catalog.AddQuestion(ctx, tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuestion)
				return
			}
			require.NoError(t, err)
			tt.check(t, q)

			stored, err := s.catalog.GetQuestion(ctx, q.ID)
			require.NoError(t, err)
			assert.Equal(t, q.QuestionText, stored.QuestionText)
		})
	}
}

func answerPtr(a model.Answer) *model.Answer { return &a }
