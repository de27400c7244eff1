package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalse      QuestionType = "true-false"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeFillBlank      QuestionType = "fill-blank"
)

// AutoGradable reports whether answers of this kind are compared against a key.
// Essay and fill-blank are never auto-graded.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeTrueFalse
}

// Difficulty is the difficulty tier of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question represents a single question, either in the bank or inside an
// assessment snapshot.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	QuestionText  string       `json:"question_text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *Answer      `json:"correct_answer,omitempty"`
	Points        int          `json:"points"`
	Difficulty    Difficulty   `json:"difficulty"`
	Subject       string       `json:"subject"`
	Topic         string       `json:"topic"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Clone returns a deep copy. Assessments keep clones so later bank edits
// never reach a published question set.
func (q Question) Clone() Question {
	c := q
	if q.Options != nil {
		c.Options = append([]string(nil), q.Options...)
	}
	if q.CorrectAnswer != nil {
		ans := cloneAnswer(*q.CorrectAnswer)
		c.CorrectAnswer = &ans
	}
	return c
}

func cloneAnswer(a Answer) Answer {
	var c Answer
	if a.Choice != nil {
		v := *a.Choice
		c.Choice = &v
	}
	if a.Text != nil {
		v := *a.Text
		c.Text = &v
	}
	return c
}

// AddQuestionRequest is the payload for adding a question to the bank.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,notblank,max=2000"`
	Type          string   `json:"type" binding:"required,oneof=multiple-choice true-false essay fill-blank"`
	Options       []string `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer *Answer  `json:"correct_answer"`
	Points        int      `json:"points" binding:"omitempty,min=1,max=100"`
	Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Subject       string   `json:"subject" binding:"required,max=255"`
	Topic         string   `json:"topic" binding:"required,max=255"`
}
