package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// AttemptRepository handles completed attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Record inserts one attempt with its violation log. Re-recording an id is a no-op.
func (r *AttemptRepository) Record(ctx context.Context, rec model.AttemptRecord) error {
	answers, order, err := encodeAttempt(rec)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO attempts (id, assessment_id, assessment_title, user_id, scope, state, score,
		                       answers, question_order, cheating_detected, remaining_seconds, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10, $11, $12, $13)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.AssessmentID, rec.AssessmentTitle, rec.UserID, rec.Scope, rec.State, rec.Score,
		answers, order, rec.CheatingDetected, rec.RemainingSeconds, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	if len(rec.Violations) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"attempt_violations"},
			[]string{"attempt_id", "category", "description", "occurred_at"},
			pgx.CopyFromRows(violationRows(rec)),
		); err != nil {
			return fmt.Errorf("copy violations: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// RecordBatch bulk-inserts attempts with COPY. It fails as a whole; callers
// fall back to Record per item.
func (r *AttemptRepository) RecordBatch(ctx context.Context, recs []model.AttemptRecord) error {
	attemptRows := make([][]interface{}, 0, len(recs))
	var vRows [][]interface{}
	for _, rec := range recs {
		answers, order, err := encodeAttempt(rec)
		if err != nil {
			return err
		}
		attemptRows = append(attemptRows, []interface{}{
			rec.ID, rec.AssessmentID, rec.AssessmentTitle, rec.UserID, rec.Scope, string(rec.State), rec.Score,
			string(answers), string(order), rec.CheatingDetected, rec.RemainingSeconds, rec.StartedAt, rec.FinishedAt,
		})
		vRows = append(vRows, violationRows(rec)...)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"attempts"},
		[]string{"id", "assessment_id", "assessment_title", "user_id", "scope", "state", "score",
			"answers", "question_order", "cheating_detected", "remaining_seconds", "started_at", "finished_at"},
		pgx.CopyFromRows(attemptRows),
	); err != nil {
		return fmt.Errorf("copy attempts: %w", err)
	}
	if len(vRows) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"attempt_violations"},
			[]string{"attempt_id", "category", "description", "occurred_at"},
			pgx.CopyFromRows(vRows),
		); err != nil {
			return fmt.Errorf("copy violations: %w", err)
		}
	}
	return tx.Commit(ctx)
}

const attemptColumns = `id, assessment_id, assessment_title, user_id, scope, state, score,
	answers, question_order, cheating_detected, remaining_seconds, started_at, finished_at`

// Get retrieves one attempt with its violations.
func (r *AttemptRepository) Get(ctx context.Context, id uuid.UUID) (*model.AttemptRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id)
	rec, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadViolations(ctx, []*model.AttemptRecord{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// List retrieves attempts newest first with the total match count.
func (r *AttemptRepository) List(ctx context.Context, f model.ResultFilter) ([]model.AttemptRecord, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.AssessmentID != nil {
		args = append(args, *f.AssessmentID)
		where += ` AND assessment_id = $` + strconv.Itoa(len(args))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if f.State != "" {
		args = append(args, f.State)
		where += ` AND state = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attempts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + attemptColumns + ` FROM attempts` + where +
		` ORDER BY finished_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []model.AttemptRecord
	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ptrs := make([]*model.AttemptRecord, len(recs))
	for i := range recs {
		ptrs[i] = &recs[i]
	}
	if err := r.loadViolations(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *AttemptRepository) loadViolations(ctx context.Context, recs []*model.AttemptRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(recs))
	byID := make(map[uuid.UUID]*model.AttemptRecord, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
		rec.Violations = []model.Violation{}
		byID[rec.ID] = rec
	}

	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, category, description, occurred_at
		 FROM attempt_violations WHERE attempt_id = ANY($1)
		 ORDER BY occurred_at, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			attemptID uuid.UUID
			v         model.Violation
		)
		if err := rows.Scan(&attemptID, &v.Category, &v.Description, &v.OccurredAt); err != nil {
			return err
		}
		if rec, ok := byID[attemptID]; ok {
			rec.Violations = append(rec.Violations, v)
		}
	}
	return rows.Err()
}

func scanAttempt(row pgx.Row) (*model.AttemptRecord, error) {
	var (
		rec     model.AttemptRecord
		answers []byte
		order   []byte
	)
	if err := row.Scan(&rec.ID, &rec.AssessmentID, &rec.AssessmentTitle, &rec.UserID, &rec.Scope, &rec.State,
		&rec.Score, &answers, &order, &rec.CheatingDetected, &rec.RemainingSeconds,
		&rec.StartedAt, &rec.FinishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if err := json.Unmarshal(order, &rec.QuestionOrder); err != nil {
		return nil, fmt.Errorf("decode question order: %w", err)
	}
	return &rec, nil
}

func encodeAttempt(rec model.AttemptRecord) (answers, order []byte, err error) {
	if rec.Answers == nil {
		rec.Answers = map[string]model.Answer{}
	}
	if answers, err = json.Marshal(rec.Answers); err != nil {
		return nil, nil, fmt.Errorf("marshal answers: %w", err)
	}
	if rec.QuestionOrder == nil {
		rec.QuestionOrder = []uuid.UUID{}
	}
	if order, err = json.Marshal(rec.QuestionOrder); err != nil {
		return nil, nil, fmt.Errorf("marshal question order: %w", err)
	}
	return answers, order, nil
}

func violationRows(rec model.AttemptRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(rec.Violations))
	for _, v := range rec.Violations {
		rows = append(rows, []interface{}{rec.ID, string(v.Category), v.Description, v.OccurredAt})
	}
	return rows
}
