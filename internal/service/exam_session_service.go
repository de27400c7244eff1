package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/notify"
)

// Session manager errors.
var (
	ErrSessionActive   = errors.New("another exam session is already active for this learner")
	ErrNoActiveSession = errors.New("no active exam session")
)

// ExamSessionDeps wires the session manager to its ports.
type ExamSessionDeps struct {
	Catalog *CatalogService
	Marker  exam.CompletionMarker
	Sink    exam.AttemptSink
	// Notifier receives every notification in addition to Hub.
	Notifier        exam.Notifier
	Hub             *notify.Hub
	Randomizer      *exam.Randomizer
	Policy          exam.Policy
	Runner          exam.RunnerOptions
	CompletionScope string
}

// SubmitResult is returned by a learner submit.
type SubmitResult struct {
	Score int       `json:"score"`
	View  exam.View `json:"session"`
}

// ExamSessionService owns the running exam sessions, at most one per
// browser context.
type ExamSessionService struct {
	deps ExamSessionDeps

	mu       sync.Mutex
	runners  map[string]*exam.Runner
	starting map[string]struct{}
	attempts map[string]struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(deps ExamSessionDeps, log zerolog.Logger) *ExamSessionService {
	if deps.Randomizer == nil {
		deps.Randomizer = exam.NewTimeSeededRandomizer()
	}
	if deps.Hub == nil {
		deps.Hub = notify.NewHub()
	}
	deps.Notifier = exam.MultiNotifier{deps.Hub, deps.Notifier}
	if deps.Policy.ViolationThreshold <= 0 {
		deps.Policy = exam.DefaultPolicy()
	}
	deps.Runner.Logger = log

	ctx, cancel := context.WithCancel(context.Background())
	s := &ExamSessionService{
		deps:     deps,
		runners:  make(map[string]*exam.Runner),
		starting: make(map[string]struct{}),
		attempts: make(map[string]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
		log:      log.With().Str("component", "exam_session_service").Logger(),
	}
	if deps.Catalog != nil {
		deps.Catalog.SetInUse(s.HasActive)
	}
	return s
}

// CompletionScope returns the marker scope for a login.
func (s *ExamSessionService) CompletionScope(claims *Claims) string {
	if s.deps.CompletionScope == config.CompletionScopeUser {
		return "user:" + claims.UserID
	}
	return claims.ContextID()
}

// ListForLearner returns the published assessments with their completed flag.
func (s *ExamSessionService) ListForLearner(ctx context.Context, claims *Claims) ([]model.AssessmentSummary, error) {
	published, err := s.deps.Catalog.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}

	scope := s.CompletionScope(claims)
	out := make([]model.AssessmentSummary, 0, len(published))
	for i := range published {
		done, err := s.deps.Marker.Contains(ctx, scope, published[i].ID)
		if err != nil {
			return nil, fmt.Errorf("check completion: %w", err)
		}
		out = append(out, published[i].Summarize(done))
	}
	return out, nil
}

// Start begins an attempt and hands the session to a new runner. The lock is
// only held to reserve the slot and to publish the runner; the session itself
// starts outside it.
func (s *ExamSessionService) Start(ctx context.Context, claims *Claims, assessmentID uuid.UUID) (exam.View, error) {
	assessment, err := s.deps.Catalog.GetByID(ctx, assessmentID)
	if err != nil {
		return exam.View{}, err
	}

	contextID := claims.ContextID()
	scope := s.CompletionScope(claims)
	attempt := scope + "|" + assessmentID.String()

	if err := s.reserve(contextID, attempt, scope, assessmentID); err != nil {
		return exam.View{}, err
	}

	session := exam.NewSession(exam.Owner{
		ContextID:       contextID,
		UserID:          claims.UserID,
		CompletionScope: scope,
	}, exam.Deps{
		Marker:     s.deps.Marker,
		Sink:       s.deps.Sink,
		Notifier:   s.deps.Notifier,
		Randomizer: s.deps.Randomizer,
		Policy:     s.deps.Policy,
		Logger:     s.log,
	})
	if err := session.Start(ctx, *assessment); err != nil {
		s.unreserve(contextID, attempt)
		return exam.View{}, err
	}
	view := session.View()
	runner := exam.NewRunner(session, s.deps.Runner)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.starting, contextID)
	delete(s.attempts, attempt)

	if s.baseCtx.Err() != nil {
		_ = session.Leave(ctx)
		return exam.View{}, exam.ErrSessionClosed
	}
	s.runners[contextID] = runner

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runner.Run(s.baseCtx)
		s.release(contextID, runner)
	}()

	return view, nil
}

// reserve claims the browser context and the scope's attempt at the
// assessment, refusing if either is already running or starting.
func (s *ExamSessionService) reserve(contextID, attempt, scope string, assessmentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseCtx.Err() != nil {
		return exam.ErrSessionClosed
	}
	if _, ok := s.starting[contextID]; ok {
		return ErrSessionActive
	}
	if _, ok := s.attempts[attempt]; ok {
		return ErrSessionActive
	}
	if r, ok := s.runners[contextID]; ok && running(r) {
		return ErrSessionActive
	}
	for _, r := range s.runners {
		sess := r.Session()
		if sess.CompletionScope() == scope && sess.AssessmentID() == assessmentID && running(r) {
			return ErrSessionActive
		}
	}

	s.starting[contextID] = struct{}{}
	s.attempts[attempt] = struct{}{}
	return nil
}

func (s *ExamSessionService) unreserve(contextID, attempt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.starting, contextID)
	delete(s.attempts, attempt)
}

func running(r *exam.Runner) bool {
	select {
	case <-r.Done():
		return false
	default:
		return true
	}
}

// Current returns the learner view of the active session.
func (s *ExamSessionService) Current(ctx context.Context, claims *Claims) (exam.View, error) {
	var v exam.View
	err := s.do(ctx, claims, func(_ context.Context, sess *exam.Session) error {
		v = sess.View()
		return nil
	})
	return v, err
}

// RecordAnswer stores an answer given as displayed to the learner.
func (s *ExamSessionService) RecordAnswer(ctx context.Context, claims *Claims, questionID uuid.UUID, value model.Answer) (exam.View, error) {
	var v exam.View
	err := s.do(ctx, claims, func(_ context.Context, sess *exam.Session) error {
		if err := sess.RecordAnswer(questionID, value); err != nil {
			return err
		}
		v = sess.View()
		return nil
	})
	return v, err
}

// Signal feeds an environment signal to the proctoring monitor.
func (s *ExamSessionService) Signal(ctx context.Context, claims *Claims, sig exam.Signal) (exam.Reaction, error) {
	r, err := s.runner(claims)
	if err != nil {
		return exam.Reaction{}, err
	}
	reaction, err := r.Observe(ctx, sig)
	return reaction, s.mapErr(err)
}

// Submit grades and closes the active session.
func (s *ExamSessionService) Submit(ctx context.Context, claims *Claims) (SubmitResult, error) {
	var res SubmitResult
	err := s.do(ctx, claims, func(ctx context.Context, sess *exam.Session) error {
		score, err := sess.Submit(ctx)
		res = SubmitResult{Score: score, View: sess.View()}
		return err
	})
	return res, err
}

// ConfirmTermination acknowledges the termination warning.
func (s *ExamSessionService) ConfirmTermination(ctx context.Context, claims *Claims) (exam.View, error) {
	var v exam.View
	err := s.do(ctx, claims, func(ctx context.Context, sess *exam.Session) error {
		err := sess.ConfirmTermination(ctx)
		v = sess.View()
		return err
	})
	return v, err
}

// Leave abandons the active session. Without one it does nothing.
func (s *ExamSessionService) Leave(ctx context.Context, claims *Claims) error {
	err := s.do(ctx, claims, func(ctx context.Context, sess *exam.Session) error {
		return sess.Leave(ctx)
	})
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	return err
}

// Subscribe streams the notifications of a browser context.
func (s *ExamSessionService) Subscribe(claims *Claims) (<-chan exam.Notification, func()) {
	return s.deps.Hub.Subscribe(claims.ContextID())
}

// HasActive reports whether any running session uses the assessment.
func (s *ExamSessionService) HasActive(assessmentID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runners {
		if r.Session().AssessmentID() == assessmentID {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of running sessions.
func (s *ExamSessionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runners)
}

// Shutdown abandons every running session and waits for the runners to
// finish their teardown.
func (s *ExamSessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("All exam sessions closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExamSessionService) runner(claims *Claims) (*exam.Runner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[claims.ContextID()]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return r, nil
}

func (s *ExamSessionService) do(ctx context.Context, claims *Claims, fn func(ctx context.Context, sess *exam.Session) error) error {
	r, err := s.runner(claims)
	if err != nil {
		return err
	}

	var closed atomic.Bool
	err = r.Do(ctx, func(ctx context.Context, sess *exam.Session) error {
		err := fn(ctx, sess)
		closed.Store(sess.State().Terminal())
		return err
	})
	// Wait for the runner to exit so the context is free when we return.
	if closed.Load() {
		<-r.Done()
		s.release(claims.ContextID(), r)
	}
	return s.mapErr(err)
}

// mapErr turns refused transitions into no-ops.
func (s *ExamSessionService) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, exam.ErrSessionClosed):
		return ErrNoActiveSession
	case errors.Is(err, exam.ErrInvalidTransition):
		s.log.Debug().Err(err).Msg("Operation ignored outside the active state")
		return nil
	default:
		return err
	}
}

func (s *ExamSessionService) release(contextID string, r *exam.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runners[contextID] == r {
		delete(s.runners, contextID)
	}
}
