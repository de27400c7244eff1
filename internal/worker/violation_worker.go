package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// ViolationWriter persists live violation events.
type ViolationWriter interface {
	InsertBatch(ctx context.Context, events []repository.ViolationEvent) error
	Insert(ctx context.Context, e repository.ViolationEvent) error
}

// ViolationWorker drains the violation queue into the audit table.
type ViolationWorker struct {
	store ViolationWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewViolationWorker creates a ViolationWorker.
func NewViolationWorker(store ViolationWriter, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "violation_worker").Logger(),
	}
}

// Start runs until ctx is cancelled.
func (w *ViolationWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("ViolationWorker started")
	batchLoop(ctx, w.rdb, config.WorkerKey.PersistViolationsQueue, w.log, w.flushSafe)
	return nil
}

func (w *ViolationWorker) flushSafe(ctx context.Context, batch []repository.ViolationEvent) {
	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []repository.ViolationEvent
	for _, ev := range batch {
		if err := w.store.Insert(ctx, ev); err != nil {
			w.log.Error().Err(err).Str("session_id", ev.SessionID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, ev)
		}
	}
	if len(failed) > 0 {
		requeue(ctx, w.rdb, config.WorkerKey.PersistViolationsQueue, w.log, failed)
	}
}
