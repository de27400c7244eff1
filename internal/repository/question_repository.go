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

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, question_text, type, options, correct_answer, points, difficulty, subject, topic, created_at`

// ListQuestions retrieves bank questions, optionally filtered by subject.
func (r *QuestionRepository) ListQuestions(ctx context.Context, subject string) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM question_bank`
	var args []interface{}
	if subject != "" {
		query += ` WHERE LOWER(subject) = LOWER($1)`
		args = append(args, subject)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetQuestion retrieves a bank question by id.
func (r *QuestionRepository) GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM question_bank WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// CreateQuestion inserts a new bank question.
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	var correct []byte
	if q.CorrectAnswer != nil {
		if correct, err = json.Marshal(q.CorrectAnswer); err != nil {
			return fmt.Errorf("marshal correct answer: %w", err)
		}
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO question_bank (id, question_text, type, options, correct_answer, points, difficulty, subject, topic)
		 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8, $9)
		 RETURNING created_at`,
		q.ID, q.QuestionText, q.Type, options, correct, q.Points, q.Difficulty, q.Subject, q.Topic,
	).Scan(&q.CreatedAt)
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var (
		q       model.Question
		options []byte
		correct []byte
	)
	if err := row.Scan(&q.ID, &q.QuestionText, &q.Type, &options, &correct,
		&q.Points, &q.Difficulty, &q.Subject, &q.Topic, &q.CreatedAt); err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	if len(correct) > 0 {
		var ans model.Answer
		if err := json.Unmarshal(correct, &ans); err != nil {
			return nil, fmt.Errorf("decode correct answer: %w", err)
		}
		if !ans.IsZero() {
			q.CorrectAnswer = &ans
		}
	}
	return &q, nil
}
