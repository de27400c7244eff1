package exam

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Ticker is the countdown tick source.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing at the given interval.
type TickerFactory func(interval time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker is the production TickerFactory.
func NewRealTicker(interval time.Duration) Ticker {
	return realTicker{t: time.NewTicker(interval)}
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	TickInterval time.Duration
	NewTicker    TickerFactory
	Logger       zerolog.Logger
}

type command struct {
	fn    func(ctx context.Context, s *Session) error
	reply chan error
}

// Runner owns an active session. Every command, countdown tick and timer
// expiry is applied on the runner goroutine, one at a time.
type Runner struct {
	session  *Session
	opts     RunnerOptions
	commands chan command
	internal chan func(ctx context.Context, s *Session)
	done     chan struct{}

	mu           sync.Mutex
	ticker       Ticker
	penaltyTimer *time.Timer
	graceTimer   *time.Timer
	stopped      bool

	log zerolog.Logger
}

// NewRunner wraps a started session. The countdown begins when Run is called.
func NewRunner(s *Session, opts RunnerOptions) *Runner {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewRealTicker
	}
	r := &Runner{
		session:  s,
		opts:     opts,
		commands: make(chan command),
		internal: make(chan func(ctx context.Context, s *Session)),
		done:     make(chan struct{}),
		log:      opts.Logger.With().Str("session_id", s.ID().String()).Logger(),
	}
	s.OnDetach(r.stopTimers)
	return r
}

// Session exposes the owned session for read-only identity lookups.
// Callers must not mutate it outside Do.
func (r *Runner) Session() *Session { return r.session }

// Done is closed when the session has left the active state.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Run processes commands until the session ends or ctx is cancelled.
// Cancellation abandons the session so the teardown still runs.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	if r.session.State() != model.SessionStateActive {
		return
	}

	var tick <-chan time.Time
	if r.session.TimeLimited() {
		r.mu.Lock()
		if !r.stopped {
			r.ticker = r.opts.NewTicker(r.opts.TickInterval)
			tick = r.ticker.C()
		}
		r.mu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			if err := r.session.Leave(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrInvalidTransition) {
				r.log.Error().Err(err).Msg("Failed to abandon session on shutdown")
			}
			return

		case cmd := <-r.commands:
			cmd.reply <- cmd.fn(ctx, r.session)

		case fn := <-r.internal:
			fn(ctx, r.session)

		case <-tick:
			if _, err := r.session.Tick(ctx); err != nil && !errors.Is(err, ErrInvalidTransition) {
				r.log.Error().Err(err).Msg("Countdown tick failed")
			}
		}

		if r.session.State().Terminal() {
			return
		}
	}
}

// Do runs fn on the runner goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case r.commands <- cmd:
	case <-r.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Observe feeds a signal to the session and schedules any penalty lift or
// termination grace the reaction asks for.
func (r *Runner) Observe(ctx context.Context, sig Signal) (Reaction, error) {
	var reaction Reaction
	err := r.Do(ctx, func(ctx context.Context, s *Session) error {
		var err error
		reaction, err = s.Observe(ctx, sig)
		if err != nil {
			return err
		}
		if reaction.LiftAfter > 0 {
			gen := reaction.LiftGeneration
			r.schedule(&r.penaltyTimer, reaction.LiftAfter, func(ctx context.Context, s *Session) {
				_ = s.LiftPenalty(ctx, gen)
			})
		}
		if reaction.TerminationWarning && reaction.GraceAfter > 0 {
			r.schedule(&r.graceTimer, reaction.GraceAfter, func(ctx context.Context, s *Session) {
				r.log.Info().Msg("Termination grace expired")
				_ = s.ConfirmTermination(ctx)
			})
		}
		return nil
	})
	return reaction, err
}

// View returns the current learner view.
func (r *Runner) View(ctx context.Context) (View, error) {
	var v View
	err := r.Do(ctx, func(_ context.Context, s *Session) error {
		v = s.View()
		return nil
	})
	return v, err
}

// schedule arms a timer that posts fn back to the runner goroutine.
func (r *Runner) schedule(slot **time.Timer, after time.Duration, fn func(ctx context.Context, s *Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if *slot != nil {
		(*slot).Stop()
	}
	*slot = time.AfterFunc(after, func() {
		select {
		case r.internal <- fn:
		case <-r.done:
		}
	})
}

// stopTimers is the session's detach hook.
func (r *Runner) stopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.ticker != nil {
		r.ticker.Stop()
	}
	if r.penaltyTimer != nil {
		r.penaltyTimer.Stop()
	}
	if r.graceTimer != nil {
		r.graceTimer.Stop()
	}
}
