package service

import (
	"context"
	"testing"
	"time"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_PracticeRoundScoresAndMarksCompleted(t *testing.T) {
	s := newStack(t, config.CompletionScopeSession)
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	view, err := s.sessions.Start(ctx, claims, practiceID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateActive, view.State)
	assert.False(t, view.TimeLimited)
	assert.False(t, view.ProctoringEnabled)
	assert.Equal(t, 15*60, view.RemainingSeconds)

	idx := displayedIndex(t, view, rwandaID, "Kigali")
	view, err = s.sessions.RecordAnswer(ctx, claims, rwandaID, model.ChoiceAnswer(idx))
	require.NoError(t, err)
	assert.Equal(t, 100, view.Progress)

	res, err := s.sessions.Submit(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, model.SessionStateSubmitted, res.View.State)

	list, err := s.sessions.ListForLearner(ctx, claims)
	require.NoError(t, err)
	for _, a := range list {
		assert.Equal(t, a.ID == practiceID, a.Completed, a.Title)
	}

	_, err = s.sessions.Start(ctx, claims, practiceID)
	assert.ErrorIs(t, err, exam.ErrAlreadyCompleted)

	records, total, err := s.attempts.List(ctx, model.ResultFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NotNil(t, records[0].Score)
	assert.Equal(t, 100, *records[0].Score)
	assert.Equal(t, model.SessionStateSubmitted, records[0].State)
}

func TestSessions_SecondStartInSameContextRefused(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	_, err := s.sessions.Start(ctx, claims, practiceID)
	require.NoError(t, err)

	_, err = s.sessions.Start(ctx, claims, midtermID)
	assert.ErrorIs(t, err, ErrSessionActive)

	// A different browser context is independent.
	_, err = s.sessions.Start(ctx, learner("ctx-2", "1"), midtermID)
	assert.NoError(t, err)
	assert.Equal(t, 2, s.sessions.ActiveCount())
}

func TestSessions_StartRefusals(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	_, err := s.sessions.Start(ctx, learner("ctx-1", "1"), draftID)
	assert.ErrorIs(t, err, exam.ErrAssessmentNotPublished)

	_, err = s.sessions.Start(ctx, learner("ctx-1", "1"), queueID)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	assert.Zero(t, s.sessions.ActiveCount())
}

func TestSessions_NoActiveSession(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	_, err := s.sessions.Current(ctx, claims)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, err = s.sessions.Submit(ctx, claims)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.NoError(t, s.sessions.Leave(ctx, claims))
}

func TestSessions_SubmitTwiceOnlyGradesOnce(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	_, err := s.sessions.Start(ctx, claims, practiceID)
	require.NoError(t, err)

	res, err := s.sessions.Submit(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)

	_, err = s.sessions.Submit(ctx, claims)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, total, err := s.attempts.List(ctx, model.ResultFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSessions_LeaveAllowsRetake(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	_, err := s.sessions.Start(ctx, claims, practiceID)
	require.NoError(t, err)
	require.NoError(t, s.sessions.Leave(ctx, claims))

	require.Eventually(t, func() bool { return s.sessions.ActiveCount() == 0 }, time.Second, 5*time.Millisecond)

	done, err := s.marker.Contains(ctx, "ctx-1", practiceID)
	require.NoError(t, err)
	assert.False(t, done)

	_, err = s.sessions.Start(ctx, claims, practiceID)
	assert.NoError(t, err)

	records, _, err := s.attempts.List(ctx, model.ResultFilter{State: model.SessionStateAbandoned})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Score)
}

func TestSessions_CompletionScope(t *testing.T) {
	tests := []struct {
		scope       string
		wantBlocked bool
	}{
		{config.CompletionScopeSession, false},
		{config.CompletionScopeUser, true},
	}
	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			s := newStack(t, tt.scope)
			ctx := context.Background()

			first := learner("login-1", "1")
			_, err := s.sessions.Start(ctx, first, practiceID)
			require.NoError(t, err)
			_, err = s.sessions.Submit(ctx, first)
			require.NoError(t, err)

			_, err = s.sessions.Start(ctx, learner("login-2", "1"), practiceID)
			if tt.wantBlocked {
				assert.ErrorIs(t, err, exam.ErrAlreadyCompleted)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessions_UserScopeRefusesParallelAttempt(t *testing.T) {
	s := newStack(t, config.CompletionScopeUser)
	ctx := context.Background()
	first := learner("ctx-a", "u-1")
	second := learner("ctx-b", "u-1")

	_, err := s.sessions.Start(ctx, first, practiceID)
	require.NoError(t, err)

	_, err = s.sessions.Start(ctx, second, practiceID)
	assert.ErrorIs(t, err, ErrSessionActive)

	// Another learner, or another assessment, is unaffected.
	_, err = s.sessions.Start(ctx, learner("ctx-c", "u-2"), practiceID)
	require.NoError(t, err)
	_, err = s.sessions.Start(ctx, second, midtermID)
	require.NoError(t, err)

	_, err = s.sessions.Submit(ctx, first)
	require.NoError(t, err)

	records, total, err := s.attempts.List(ctx, model.ResultFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "u-1", records[0].UserID)
}

func TestSessions_ContextScopeAllowsParallelLogins(t *testing.T) {
	s := newStack(t, config.CompletionScopeSession)
	ctx := context.Background()

	_, err := s.sessions.Start(ctx, learner("ctx-a", "u-1"), practiceID)
	require.NoError(t, err)
	_, err = s.sessions.Start(ctx, learner("ctx-b", "u-1"), practiceID)
	assert.NoError(t, err)
}

func TestSessions_ViolationsWarnThenTerminate(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	notes, unsubscribe := s.sessions.Subscribe(claims)
	defer unsubscribe()

	_, err := s.sessions.Start(ctx, claims, midtermID)
	require.NoError(t, err)

	var reaction exam.Reaction
	for i := 0; i < 3; i++ {
		reaction, err = s.sessions.Signal(ctx, claims, exam.Signal{Type: exam.SignalVisibilityHidden})
		require.NoError(t, err)
		require.NotNil(t, reaction.Violation)
		_, err = s.sessions.Signal(ctx, claims, exam.Signal{Type: exam.SignalVisibilityVisible})
		require.NoError(t, err)
	}
	assert.True(t, reaction.TerminationWarning)

	view, err := s.sessions.Current(ctx, claims)
	require.NoError(t, err)
	assert.True(t, view.TerminationPending)
	assert.Equal(t, 3, view.ViolationCount)

	view, err = s.sessions.ConfirmTermination(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateTerminated, view.State)
	assert.Nil(t, view.Score)

	records, _, err := s.attempts.List(ctx, model.ResultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].CheatingDetected)
	assert.NotNil(t, records[0].Score)

	var kinds []exam.NotificationKind
	for len(notes) > 0 {
		kinds = append(kinds, (<-notes).Kind)
	}
	assert.Equal(t, exam.NotifyStarted, kinds[0])
	assert.Contains(t, kinds, exam.NotifyTerminationWarning)
	assert.Equal(t, exam.NotifyTerminated, kinds[len(kinds)-1])
}

func TestSessions_ConfirmWithoutWarningIsIgnored(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	_, err := s.sessions.Start(ctx, claims, midtermID)
	require.NoError(t, err)

	view, err := s.sessions.ConfirmTermination(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateActive, view.State)
}

func TestSessions_ShutdownAbandonsRunningSessions(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	_, err := s.sessions.Start(ctx, learner("ctx-1", "1"), midtermID)
	require.NoError(t, err)
	_, err = s.sessions.Start(ctx, learner("ctx-2", "2"), practiceID)
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, s.sessions.Shutdown(shutdownCtx))

	records, total, err := s.attempts.List(ctx, model.ResultFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, r := range records {
		assert.Equal(t, model.SessionStateAbandoned, r.State)
	}

	_, err = s.sessions.Start(ctx, learner("ctx-3", "3"), practiceID)
	assert.ErrorIs(t, err, exam.ErrSessionClosed)
}

func TestResults_DetailIncludesBreakdown(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	claims := learner("ctx-1", "1")

	view, err := s.sessions.Start(ctx, claims, practiceID)
	require.NoError(t, err)
	idx := displayedIndex(t, view, rwandaID, "Butare")
	_, err = s.sessions.RecordAnswer(ctx, claims, rwandaID, model.ChoiceAnswer(idx))
	require.NoError(t, err)
	_, err = s.sessions.Submit(ctx, claims)
	require.NoError(t, err)

	records, page, err := s.results.List(ctx, model.ResultFilter{UserID: "1"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, page.TotalItems)

	detail, err := s.results.Get(ctx, records[0].ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Breakdown)
	assert.Equal(t, 0, detail.Breakdown.Score)
	assert.Equal(t, 1, detail.Breakdown.Answered)
	assert.Equal(t, 0, detail.Breakdown.Correct)
}
