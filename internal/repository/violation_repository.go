package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ViolationEvent is one live proctoring violation, persisted as it happens
// rather than when the attempt ends.
type ViolationEvent struct {
	SessionID      uuid.UUID `json:"session_id"`
	AssessmentID   uuid.UUID `json:"assessment_id"`
	UserID         string    `json:"user_id"`
	Category       string    `json:"category"`
	Description    string    `json:"description"`
	ViolationCount int       `json:"violation_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ViolationRepository handles the live violation audit log.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// InsertBatch bulk-inserts events with COPY.
func (r *ViolationRepository) InsertBatch(ctx context.Context, events []ViolationEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			e.SessionID, e.AssessmentID, e.UserID, e.Category, e.Description, e.ViolationCount, e.OccurredAt,
		})
	}
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"violation_events"},
		[]string{"session_id", "assessment_id", "user_id", "category", "description", "violation_count", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single event.
func (r *ViolationRepository) Insert(ctx context.Context, e ViolationEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO violation_events (session_id, assessment_id, user_id, category, description, violation_count, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.SessionID, e.AssessmentID, e.UserID, e.Category, e.Description, e.ViolationCount, e.OccurredAt,
	)
	return err
}
