package exam

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Deps are the collaborators of a session.
type Deps struct {
	Marker     CompletionMarker
	Sink       AttemptSink
	Notifier   Notifier
	Randomizer *Randomizer
	Policy     Policy
	Clock      func() time.Time
	Logger     zerolog.Logger
}

// Owner identifies who a session belongs to.
type Owner struct {
	// ContextID is the browser context (one login) the session runs in.
	ContextID string
	UserID    string
	// CompletionScope keys the completion marker. Empty means ContextID.
	CompletionScope string
}

// Session is one attempt at an assessment. It is not safe for concurrent
// use; once started it is owned by a Runner.
type Session struct {
	id        uuid.UUID
	contextID string
	scope     string
	userID    string

	assessment  model.Assessment
	state       model.SessionState
	order       []int
	optionOrder map[uuid.UUID][]int
	answers     map[uuid.UUID]model.Answer
	remaining   int
	violations  []model.Violation
	monitor     *Monitor

	warningPending bool
	score          *int
	startedAt      time.Time
	finishedAt     time.Time

	detachHooks []func()
	detached    bool

	marker     CompletionMarker
	sink       AttemptSink
	notifier   Notifier
	randomizer *Randomizer
	policy     Policy
	now        func() time.Time
	log        zerolog.Logger
}

// NewSession creates a session in the not-started state.
func NewSession(owner Owner, deps Deps) *Session {
	scope := owner.CompletionScope
	if scope == "" {
		scope = owner.ContextID
	}
	s := &Session{
		id:         uuid.New(),
		contextID:  owner.ContextID,
		scope:      scope,
		userID:     owner.UserID,
		state:      model.SessionStateNotStarted,
		marker:     deps.Marker,
		sink:       deps.Sink,
		notifier:   deps.Notifier,
		randomizer: deps.Randomizer,
		policy:     deps.Policy,
		now:        deps.Clock,
	}
	if s.marker == nil {
		s.marker = NewMemoryMarker()
	}
	if s.sink == nil {
		s.sink = nopSink{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.randomizer == nil {
		s.randomizer = NewTimeSeededRandomizer()
	}
	if s.policy.ViolationThreshold <= 0 {
		s.policy.ViolationThreshold = DefaultPolicy().ViolationThreshold
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = deps.Logger.With().
		Str("session_id", s.id.String()).
		Str("context_id", owner.ContextID).
		Str("user_id", owner.UserID).
		Logger()
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) ContextID() string { return s.contextID }

// CompletionScope is the marker scope the session checks and adds to.
func (s *Session) CompletionScope() string { return s.scope }

func (s *Session) UserID() string { return s.userID }

func (s *Session) State() model.SessionState { return s.state }

func (s *Session) AssessmentID() uuid.UUID { return s.assessment.ID }

// Remaining is the countdown value in seconds.
func (s *Session) Remaining() int { return s.remaining }

// TerminationPending reports whether the termination warning awaits confirmation.
func (s *Session) TerminationPending() bool { return s.warningPending }

func (s *Session) TimeLimited() bool { return s.assessment.EnforceTimeLimit }

// Answers returns a copy of the answer map keyed by question id.
func (s *Session) Answers() map[uuid.UUID]model.Answer {
	out := make(map[uuid.UUID]model.Answer, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Violations returns a copy of the violation log.
func (s *Session) Violations() []model.Violation {
	return append([]model.Violation(nil), s.violations...)
}

// Score is nil until the session is submitted or terminated.
func (s *Session) Score() *int { return s.score }

// OnDetach registers a hook run once when the session leaves the active state.
func (s *Session) OnDetach(fn func()) {
	s.detachHooks = append(s.detachHooks, fn)
}

// Start begins the attempt. The question and option orderings are fixed here
// and never recomputed.
func (s *Session) Start(ctx context.Context, assessment model.Assessment) error {
	if s.state != model.SessionStateNotStarted {
		return ErrInvalidTransition
	}
	if assessment.Status != model.AssessmentStatusPublished {
		return ErrAssessmentNotPublished
	}
	done, err := s.marker.Contains(ctx, s.scope, assessment.ID)
	if err != nil {
		return fmt.Errorf("check completion: %w", err)
	}
	if done {
		return ErrAlreadyCompleted
	}

	s.assessment = assessment.Clone()
	s.order = s.randomizer.Permutation(len(s.assessment.Questions), s.assessment.ShuffleQuestions)
	s.optionOrder = make(map[uuid.UUID][]int)
	for _, q := range s.assessment.Questions {
		if q.Type == model.QuestionTypeMultipleChoice {
			s.optionOrder[q.ID] = s.randomizer.Permutation(len(q.Options), s.assessment.ShuffleOptions)
		}
	}
	s.answers = make(map[uuid.UUID]model.Answer)
	s.violations = nil
	s.remaining = s.assessment.DurationSeconds()
	if s.assessment.EnableProctoring {
		s.monitor = NewMonitor(s.policy)
	}
	s.startedAt = s.now()
	s.state = model.SessionStateActive
	s.log = s.log.With().Str("assessment_id", s.assessment.ID.String()).Logger()

	s.log.Info().
		Int("questions", len(s.order)).
		Int("remaining", s.remaining).
		Bool("proctoring", s.monitor != nil).
		Msg("Exam session started")

	desc := "Good luck!"
	if s.monitor != nil {
		desc = "Anti-cheating measures are now active"
	}
	s.notify(ctx, Notification{
		Kind:        NotifyStarted,
		Severity:    SeverityInfo,
		Title:       "Exam Started",
		Description: desc,
	})
	return nil
}

// RecordAnswer stores an answer, overwriting any earlier one. Multiple-choice
// indexes are given as displayed and stored as the canonical option index.
// A zero answer clears the question.
func (s *Session) RecordAnswer(questionID uuid.UUID, value model.Answer) error {
	if s.state != model.SessionStateActive {
		return ErrInvalidTransition
	}
	q, ok := s.question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if value.IsZero() {
		delete(s.answers, questionID)
		return nil
	}

	if q.Type == model.QuestionTypeMultipleChoice && value.Choice != nil {
		perm := s.optionOrder[questionID]
		idx := *value.Choice
		if idx < 0 || idx >= len(perm) {
			return ErrAnswerOutOfRange
		}
		value = model.ChoiceAnswer(perm[idx])
	}

	s.answers[questionID] = value
	s.log.Debug().Str("question_id", questionID.String()).Msg("Answer recorded")
	return nil
}

// Reaction is what the session did in response to an environment signal.
type Reaction struct {
	Suppress           bool             `json:"suppress"`
	Violation          *model.Violation `json:"violation,omitempty"`
	TerminationWarning bool             `json:"termination_warning"`
	LiftAfter          time.Duration    `json:"-"`
	LiftGeneration     uint64           `json:"-"`
	GraceAfter         time.Duration    `json:"-"`
}

// Observe feeds an environment signal to the proctoring monitor. Without
// proctoring the signal is ignored.
func (s *Session) Observe(ctx context.Context, sig Signal) (Reaction, error) {
	if s.state != model.SessionStateActive {
		return Reaction{}, ErrInvalidTransition
	}
	if s.monitor == nil {
		return Reaction{}, nil
	}

	obs := s.monitor.Observe(sig, s.now())
	r := Reaction{
		Suppress:       obs.Suppress,
		Violation:      obs.Violation,
		LiftAfter:      obs.LiftAfter,
		LiftGeneration: obs.LiftGeneration,
	}
	if obs.Lifted {
		s.notify(ctx, penaltyLifted)
	}
	if obs.Violation == nil {
		return r, nil
	}

	s.violations = append(s.violations, *obs.Violation)
	s.log.Warn().
		Str("category", string(obs.Violation.Category)).
		Int("violations", len(s.violations)).
		Msg("Proctoring violation")
	s.notify(ctx, Notification{
		Kind:        NotifyViolationWarning,
		Severity:    SeverityDestructive,
		Title:       "Warning",
		Description: warningText(obs.Violation.Category),
		Violation:   obs.Violation,
	})

	if !s.warningPending && len(s.violations) >= s.policy.ViolationThreshold {
		s.warningPending = true
		r.TerminationWarning = true
		r.GraceAfter = s.policy.TerminationGrace
		s.log.Warn().Int("violations", len(s.violations)).Msg("Violation threshold reached")
		s.notify(ctx, Notification{
			Kind:     NotifyTerminationWarning,
			Severity: SeverityDestructive,
			Title:    "Multiple Violations Detected",
			Description: fmt.Sprintf("Multiple violations have been detected. "+
				"The exam will be terminated automatically. Violations detected: %d", len(s.violations)),
			RequiresAction: true,
		})
	}
	return r, nil
}

// LiftPenalty clears the visibility blur scheduled by an earlier reaction.
func (s *Session) LiftPenalty(ctx context.Context, generation uint64) error {
	if s.state != model.SessionStateActive || s.monitor == nil {
		return ErrInvalidTransition
	}
	if !s.monitor.LiftPenalty(generation) {
		return nil
	}
	s.notify(ctx, penaltyLifted)
	return nil
}

var penaltyLifted = Notification{
	Kind:     NotifyPenaltyLifted,
	Severity: SeverityInfo,
	Title:    "Focus restored",
}

// Tick advances the countdown by one second. At zero the session is
// submitted; the counter never goes negative.
func (s *Session) Tick(ctx context.Context) (int, error) {
	if s.state != model.SessionStateActive {
		return s.remaining, ErrInvalidTransition
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.log.Info().Msg("Time is up, submitting")
		if _, err := s.Submit(ctx); err != nil {
			return 0, err
		}
	}
	return s.remaining, nil
}

// Submit grades the answers and ends the attempt.
func (s *Session) Submit(ctx context.Context) (int, error) {
	if s.state != model.SessionStateActive {
		return 0, ErrInvalidTransition
	}
	score := s.finish(ctx, model.SessionStateSubmitted, true)
	s.notify(ctx, Notification{
		Kind:        NotifySubmitted,
		Severity:    SeverityInfo,
		Title:       "Exam Submitted",
		Description: fmt.Sprintf("Your score: %d%%. This exam cannot be retaken.", score),
		Score:       &score,
	})
	return score, nil
}

// ConfirmTermination terminates the session after the termination warning
// was raised. Without a pending warning it is refused.
func (s *Session) ConfirmTermination(ctx context.Context) error {
	if s.state != model.SessionStateActive || !s.warningPending {
		return ErrInvalidTransition
	}
	return s.Terminate(ctx)
}

// Terminate ends the attempt for disciplinary reasons. The score from the
// answers so far is recorded but not shown to the learner.
func (s *Session) Terminate(ctx context.Context) error {
	if s.state != model.SessionStateActive {
		return ErrInvalidTransition
	}
	s.finish(ctx, model.SessionStateTerminated, true)
	s.notify(ctx, Notification{
		Kind:        NotifyTerminated,
		Severity:    SeverityDestructive,
		Title:       "Exam Terminated",
		Description: "The exam was terminated due to violations",
	})
	return nil
}

// Leave abandons the attempt. Nothing is scored and the assessment is not
// marked completed.
func (s *Session) Leave(ctx context.Context) error {
	if s.state != model.SessionStateActive {
		return ErrInvalidTransition
	}
	s.finish(ctx, model.SessionStateAbandoned, false)
	s.notify(ctx, Notification{
		Kind:        NotifyAbandoned,
		Severity:    SeverityWarning,
		Title:       "Exam Closed",
		Description: "You left the exam before submitting",
	})
	return nil
}

// finish is the single exit path out of the active state.
func (s *Session) finish(ctx context.Context, state model.SessionState, graded bool) int {
	s.state = state
	s.finishedAt = s.now()

	var score int
	if graded {
		score = Score(s.assessment.Questions, s.answers)
		s.score = &score
		if err := s.marker.Add(ctx, s.scope, s.assessment.ID); err != nil {
			s.log.Error().Err(err).Msg("Failed to mark assessment completed")
		}
	}

	s.detach()

	if err := s.sink.Record(ctx, s.Record()); err != nil {
		s.log.Error().Err(err).Msg("Failed to record attempt")
	}

	ev := s.log.Info().Str("state", string(state)).Int("violations", len(s.violations))
	if s.score != nil {
		ev = ev.Int("score", *s.score)
	}
	ev.Msg("Exam session finished")
	return score
}

func (s *Session) detach() {
	if s.detached {
		return
	}
	s.detached = true
	for i := len(s.detachHooks) - 1; i >= 0; i-- {
		s.detachHooks[i]()
	}
	s.detachHooks = nil
}

// Record builds the attempt record for the current state.
func (s *Session) Record() model.AttemptRecord {
	answers := make(map[string]model.Answer, len(s.answers))
	for k, v := range s.answers {
		answers[k.String()] = v
	}
	order := make([]uuid.UUID, len(s.order))
	for i, idx := range s.order {
		order[i] = s.assessment.Questions[idx].ID
	}

	rec := model.AttemptRecord{
		ID:               s.id,
		AssessmentID:     s.assessment.ID,
		AssessmentTitle:  s.assessment.Title,
		UserID:           s.userID,
		Scope:            s.scope,
		State:            s.state,
		Answers:          answers,
		QuestionOrder:    order,
		Violations:       s.Violations(),
		CheatingDetected: s.state == model.SessionStateTerminated || len(s.violations) >= s.policy.ViolationThreshold,
		RemainingSeconds: s.remaining,
		StartedAt:        s.startedAt,
		FinishedAt:       s.finishedAt,
	}
	if s.score != nil {
		v := *s.score
		rec.Score = &v
	}
	return rec
}

func (s *Session) question(id uuid.UUID) (model.Question, bool) {
	for _, q := range s.assessment.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

func (s *Session) notify(ctx context.Context, n Notification) {
	n.Scope = s.contextID
	n.UserID = s.userID
	n.SessionID = s.id
	n.AssessmentID = s.assessment.ID
	n.State = s.state
	n.ViolationCount = len(s.violations)
	n.At = s.now()
	s.notifier.Notify(ctx, n)
}

// QuestionView is a question as the learner sees it: options in display
// order and no answer key.
type QuestionView struct {
	ID           uuid.UUID          `json:"id"`
	Number       int                `json:"number"`
	QuestionText string             `json:"question_text"`
	Type         model.QuestionType `json:"type"`
	Options      []string           `json:"options,omitempty"`
	Points       int                `json:"points"`
	Difficulty   model.Difficulty   `json:"difficulty"`
	Answer       *model.Answer      `json:"answer,omitempty"`
	WordCount    int                `json:"word_count,omitempty"`
	CharCount    int                `json:"char_count,omitempty"`
}

// View is the learner-facing snapshot of a session.
type View struct {
	SessionID          uuid.UUID          `json:"session_id"`
	AssessmentID       uuid.UUID          `json:"assessment_id"`
	Title              string             `json:"title"`
	State              model.SessionState `json:"state"`
	Questions          []QuestionView     `json:"questions"`
	Answered           int                `json:"answered"`
	Progress           int                `json:"progress"`
	TimeLimited        bool               `json:"time_limited"`
	RemainingSeconds   int                `json:"remaining_seconds"`
	RemainingDisplay   string             `json:"remaining_display"`
	LowTime            bool               `json:"low_time"`
	ProctoringEnabled  bool               `json:"proctoring_enabled"`
	Violations         []model.Violation  `json:"violations"`
	ViolationCount     int                `json:"violation_count"`
	TerminationPending bool               `json:"termination_pending"`
	Blurred            bool               `json:"blurred"`
	TabVisible         bool               `json:"tab_visible"`
	Score              *int               `json:"score,omitempty"`
	StartedAt          time.Time          `json:"started_at"`
}

// View renders the session from its fixed ordering.
func (s *Session) View() View {
	v := View{
		SessionID:          s.id,
		AssessmentID:       s.assessment.ID,
		Title:              s.assessment.Title,
		State:              s.state,
		TimeLimited:        s.assessment.EnforceTimeLimit,
		RemainingSeconds:   s.remaining,
		RemainingDisplay:   FormatClock(s.remaining),
		ProctoringEnabled:  s.monitor != nil,
		Violations:         s.Violations(),
		ViolationCount:     len(s.violations),
		TerminationPending: s.warningPending,
		TabVisible:         true,
		StartedAt:          s.startedAt,
	}
	v.LowTime = v.TimeLimited && s.state == model.SessionStateActive && s.remaining < s.policy.LowTimeSeconds
	if s.monitor != nil {
		v.Blurred = s.monitor.Blurred()
		v.TabVisible = s.monitor.TabVisible()
	}
	// Terminated scores are kept for the record only.
	if s.state == model.SessionStateSubmitted {
		v.Score = s.score
	}

	v.Questions = make([]QuestionView, 0, len(s.order))
	for n, idx := range s.order {
		q := s.assessment.Questions[idx]
		qv := QuestionView{
			ID:           q.ID,
			Number:       n + 1,
			QuestionText: q.QuestionText,
			Type:         q.Type,
			Points:       q.Points,
			Difficulty:   q.Difficulty,
		}
		perm := s.optionOrder[q.ID]
		if len(perm) > 0 {
			qv.Options = make([]string, len(perm))
			for i, canonical := range perm {
				qv.Options[i] = q.Options[canonical]
			}
		}

		if ans, ok := s.answers[q.ID]; ok {
			shown := ans
			if ans.Choice != nil && len(perm) > 0 {
				for i, canonical := range perm {
					if canonical == *ans.Choice {
						shown = model.ChoiceAnswer(i)
						break
					}
				}
			}
			qv.Answer = &shown
			v.Answered++
			if ans.Text != nil && (q.Type == model.QuestionTypeEssay || q.Type == model.QuestionTypeFillBlank) {
				qv.WordCount = len(strings.Fields(*ans.Text))
				qv.CharCount = utf8.RuneCountInString(*ans.Text)
			}
		}
		v.Questions = append(v.Questions, qv)
	}
	if len(s.order) > 0 {
		v.Progress = v.Answered * 100 / len(s.order)
	}
	return v
}

// FormatClock renders seconds as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
