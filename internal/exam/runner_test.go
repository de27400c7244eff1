package exam

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRunner(t *testing.T, h *harness, a model.Assessment) (*Runner, *fakeTicker, context.CancelFunc) {
	t.Helper()

	s := h.session("ctx-1")
	require.NoError(t, s.Start(context.Background(), a))

	ft := newFakeTicker()
	r := NewRunner(s, RunnerOptions{
		NewTicker: func(time.Duration) Ticker { return ft },
		Logger:    zerolog.Nop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(cancel)
	return r, ft, cancel
}

func waitDone(t *testing.T, r *Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_CountdownSubmitsOnce(t *testing.T) {
	h := newHarness()
	r, ft, _ := startRunner(t, h, sampleAssessment())

	for i := 0; i < 60; i++ {
		ft.ch <- time.Now()
	}
	waitDone(t, r)

	assert.True(t, ft.isStopped())
	recs := h.sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, model.SessionStateSubmitted, recs[0].State)
	assert.Equal(t, 0, recs[0].RemainingSeconds)
	assert.Equal(t, 1, h.notifier.count(NotifySubmitted))

	_, err := r.View(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestRunner_LastTickRacesManualSubmit(t *testing.T) {
	h := newHarness()
	r, ft, _ := startRunner(t, h, sampleAssessment())

	for i := 0; i < 59; i++ {
		ft.ch <- time.Now()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = r.Do(context.Background(), func(ctx context.Context, s *Session) error {
			_, err := s.Submit(ctx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		select {
		case ft.ch <- time.Now():
		case <-r.Done():
		}
	}()
	wg.Wait()
	waitDone(t, r)

	assert.Len(t, h.sink.all(), 1)
	assert.Equal(t, 1, h.notifier.count(NotifySubmitted))
}

func TestRunner_NoTimerWithoutTimeLimit(t *testing.T) {
	h := newHarness()
	a := sampleAssessment()
	a.EnforceTimeLimit = false

	s := h.session("ctx-1")
	require.NoError(t, s.Start(context.Background(), a))
	created := false
	r := NewRunner(s, RunnerOptions{
		NewTicker: func(time.Duration) Ticker {
			created = true
			return newFakeTicker()
		},
		Logger: zerolog.Nop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	v, err := r.View(context.Background())
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, v.TimeLimited)
	assert.Equal(t, 60, v.RemainingSeconds)
	assert.False(t, v.LowTime)
}

func TestRunner_GraceAutoConfirmsTermination(t *testing.T) {
	h := newHarness()
	h.policy.TerminationGrace = 20 * time.Millisecond
	a := sampleAssessment()
	a.EnableProctoring = true
	r, _, _ := startRunner(t, h, a)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.Observe(ctx, Signal{Type: SignalVisibilityHidden})
		require.NoError(t, err)
	}
	waitDone(t, r)

	recs := h.sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, model.SessionStateTerminated, recs[0].State)
	assert.Len(t, recs[0].Violations, 3)
}

func TestRunner_PenaltyLiftedAfterDelay(t *testing.T) {
	h := newHarness()
	h.policy.PenaltyDelay = 100 * time.Millisecond
	a := sampleAssessment()
	a.EnableProctoring = true
	r, _, _ := startRunner(t, h, a)

	ctx := context.Background()
	_, err := r.Observe(ctx, Signal{Type: SignalVisibilityHidden})
	require.NoError(t, err)
	reaction, err := r.Observe(ctx, Signal{Type: SignalVisibilityVisible})
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, reaction.LiftAfter)

	v, err := r.View(ctx)
	require.NoError(t, err)
	assert.True(t, v.Blurred)

	assert.Eventually(t, func() bool {
		v, err := r.View(ctx)
		return err == nil && !v.Blurred
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.notifier.count(NotifyPenaltyLifted))
}

func TestRunner_ZeroPenaltyDelayNeverLeavesBlur(t *testing.T) {
	h := newHarness()
	h.policy.PenaltyDelay = 0
	a := sampleAssessment()
	a.EnableProctoring = true
	r, _, _ := startRunner(t, h, a)

	ctx := context.Background()
	_, err := r.Observe(ctx, Signal{Type: SignalVisibilityHidden})
	require.NoError(t, err)
	_, err = r.Observe(ctx, Signal{Type: SignalVisibilityVisible})
	require.NoError(t, err)

	v, err := r.View(ctx)
	require.NoError(t, err)
	assert.False(t, v.Blurred)
	assert.Equal(t, 1, h.notifier.count(NotifyPenaltyLifted))
}

func TestRunner_CancelAbandonsSession(t *testing.T) {
	h := newHarness()
	r, ft, cancel := startRunner(t, h, sampleAssessment())

	cancel()
	waitDone(t, r)

	assert.True(t, ft.isStopped())
	recs := h.sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, model.SessionStateAbandoned, recs[0].State)
}
