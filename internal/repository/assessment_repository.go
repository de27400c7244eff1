package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// AssessmentRepository handles assessment data access. The question set is
// stored as a JSONB snapshot on the assessment row.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const assessmentColumns = `id, title, description, subject, duration_minutes, total_points, questions, status,
	created_by, created_at, updated_at, scheduled_at, allowed_attempts,
	shuffle_questions, shuffle_options, enforce_time_limit, enable_proctoring`

// ListAssessments retrieves assessments in creation order, optionally by status.
func (r *AssessmentRepository) ListAssessments(ctx context.Context, status model.AssessmentStatus) ([]model.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetAssessment retrieves an assessment by its UUID.
func (r *AssessmentRepository) GetAssessment(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// SaveAssessment inserts or updates an assessment.
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, a *model.Assessment) error {
	questions, err := json.Marshal(a.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (id, title, description, subject, duration_minutes, total_points, questions,
		                          status, created_by, scheduled_at, allowed_attempts,
		                          shuffle_questions, shuffle_options, enforce_time_limit, enable_proctoring)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     subject = EXCLUDED.subject,
		     duration_minutes = EXCLUDED.duration_minutes,
		     total_points = EXCLUDED.total_points,
		     questions = EXCLUDED.questions,
		     status = EXCLUDED.status,
		     scheduled_at = EXCLUDED.scheduled_at,
		     allowed_attempts = EXCLUDED.allowed_attempts,
		     shuffle_questions = EXCLUDED.shuffle_questions,
		     shuffle_options = EXCLUDED.shuffle_options,
		     enforce_time_limit = EXCLUDED.enforce_time_limit,
		     enable_proctoring = EXCLUDED.enable_proctoring,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		a.ID, a.Title, a.Description, a.Subject, a.DurationMinutes, a.TotalPoints, questions,
		a.Status, a.CreatedBy, a.ScheduledAt, a.AllowedAttempts,
		a.ShuffleQuestions, a.ShuffleOptions, a.EnforceTimeLimit, a.EnableProctoring,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// DeleteAssessment removes an assessment.
func (r *AssessmentRepository) DeleteAssessment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAssessment(row pgx.Row) (*model.Assessment, error) {
	var (
		a         model.Assessment
		questions []byte
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Subject, &a.DurationMinutes, &a.TotalPoints,
		&questions, &a.Status, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt, &a.ScheduledAt, &a.AllowedAttempts,
		&a.ShuffleQuestions, &a.ShuffleOptions, &a.EnforceTimeLimit, &a.EnableProctoring); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &a.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &a, nil
}

// PostgresCatalog is the CatalogStore backed by PostgreSQL.
type PostgresCatalog struct {
	*AssessmentRepository
	*QuestionRepository
}

// NewPostgresCatalog creates a PostgresCatalog.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{
		AssessmentRepository: NewAssessmentRepository(pool),
		QuestionRepository:   NewQuestionRepository(pool),
	}
}
