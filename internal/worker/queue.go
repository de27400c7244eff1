package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// AttemptQueue pushes finished attempts onto the Redis persistence queue.
// It is the session AttemptSink when Redis and PostgreSQL are both enabled.
type AttemptQueue struct {
	rdb *redis.Client
}

// NewAttemptQueue creates an AttemptQueue.
func NewAttemptQueue(rdb *redis.Client) *AttemptQueue {
	return &AttemptQueue{rdb: rdb}
}

// Record implements exam.AttemptSink.
func (q *AttemptQueue) Record(ctx context.Context, rec model.AttemptRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, data).Err(); err != nil {
		return fmt.Errorf("enqueue attempt: %w", err)
	}
	return nil
}

// ViolationQueue pushes every violation warning onto the Redis audit queue.
type ViolationQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewViolationQueue creates a ViolationQueue.
func NewViolationQueue(rdb *redis.Client, log zerolog.Logger) *ViolationQueue {
	return &ViolationQueue{
		rdb: rdb,
		log: log.With().Str("component", "violation_queue").Logger(),
	}
}

// Notify implements exam.Notifier. Only violation warnings are queued.
func (q *ViolationQueue) Notify(ctx context.Context, n exam.Notification) {
	ev, ok := ViolationEventFrom(n)
	if !ok {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		q.log.Error().Err(err).Msg("Failed to marshal violation event")
		return
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err(); err != nil {
		q.log.Error().Err(err).Str("session_id", n.SessionID.String()).Msg("Failed to enqueue violation event")
	}
}

// ViolationEventFrom extracts the audit event carried by a violation warning.
func ViolationEventFrom(n exam.Notification) (repository.ViolationEvent, bool) {
	if n.Kind != exam.NotifyViolationWarning || n.Violation == nil {
		return repository.ViolationEvent{}, false
	}
	return repository.ViolationEvent{
		SessionID:      n.SessionID,
		AssessmentID:   n.AssessmentID,
		UserID:         n.UserID,
		Category:       string(n.Violation.Category),
		Description:    n.Violation.Description,
		ViolationCount: n.ViolationCount,
		OccurredAt:     n.Violation.OccurredAt,
	}, true
}
