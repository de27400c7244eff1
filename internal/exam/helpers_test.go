package exam

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	records []model.AttemptRecord
}

func (r *recordingSink) Record(_ context.Context, rec model.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingSink) all() []model.AttemptRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AttemptRecord(nil), r.records...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) kinds() []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationKind, len(r.items))
	for i, n := range r.items {
		out[i] = n.Kind
	}
	return out
}

func (r *recordingNotifier) count(kind NotificationKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{ch: make(chan time.Time)}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type harness struct {
	marker   *MemoryMarker
	sink     *recordingSink
	notifier *recordingNotifier
	policy   Policy
}

func newHarness() *harness {
	return &harness{
		marker:   NewMemoryMarker(),
		sink:     &recordingSink{},
		notifier: &recordingNotifier{},
		policy:   DefaultPolicy(),
	}
}

func (h *harness) session(contextID string) *Session {
	return NewSession(Owner{ContextID: contextID, UserID: "user-1"}, Deps{
		Marker:     h.marker,
		Sink:       h.sink,
		Notifier:   h.notifier,
		Randomizer: NewRandomizer(42),
		Policy:     h.policy,
		Logger:     zerolog.Nop(),
	})
}

var (
	mcID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	tfID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// sampleAssessment is a one-minute assessment with one multiple-choice and
// one true/false question.
func sampleAssessment() model.Assessment {
	correctMC := model.ChoiceAnswer(0)
	correctTF := model.TextAnswer("true")
	a := model.Assessment{
		ID:              uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
		Title:           "Sample",
		DurationMinutes: 1,
		Status:          model.AssessmentStatusPublished,
		AllowedAttempts: 1,
		Questions: []model.Question{
			{
				ID:            mcID,
				QuestionText:  "What is the capital of Rwanda?",
				Type:          model.QuestionTypeMultipleChoice,
				Options:       []string{"Kigali", "Butare", "Gitarama", "Ruhengeri"},
				CorrectAnswer: &correctMC,
				Points:        2,
			},
			{
				ID:            tfID,
				QuestionText:  "A compiler translates source code into machine code.",
				Type:          model.QuestionTypeTrueFalse,
				CorrectAnswer: &correctTF,
				Points:        1,
			},
		},
		EnforceTimeLimit: true,
	}
	a.RecomputeTotalPoints()
	return a
}
