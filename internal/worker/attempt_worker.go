package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// AttemptWriter persists attempt records.
type AttemptWriter interface {
	RecordBatch(ctx context.Context, recs []model.AttemptRecord) error
	Record(ctx context.Context, rec model.AttemptRecord) error
}

// AttemptWorker drains the attempt queue into PostgreSQL.
type AttemptWorker struct {
	store AttemptWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewAttemptWorker creates an AttemptWorker.
func NewAttemptWorker(store AttemptWriter, rdb *redis.Client, log zerolog.Logger) *AttemptWorker {
	return &AttemptWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "attempt_worker").Logger(),
	}
}

// Start runs until ctx is cancelled.
func (w *AttemptWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("AttemptWorker started")
	batchLoop(ctx, w.rdb, config.WorkerKey.PersistAttemptsQueue, w.log, w.flushSafe)
	return nil
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *AttemptWorker) flushSafe(ctx context.Context, batch []model.AttemptRecord) {
	err := w.store.RecordBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Attempts persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.AttemptRecord
	for _, rec := range batch {
		if err := w.store.Record(ctx, rec); err != nil {
			w.log.Error().Err(err).Str("attempt_id", rec.ID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, rec)
		}
	}
	if len(failed) > 0 {
		requeue(ctx, w.rdb, config.WorkerKey.PersistAttemptsQueue, w.log, failed)
	}
}
