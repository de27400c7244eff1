package exam

import (
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Score returns the percentage of questions answered correctly, rounded to
// the nearest integer. Every question counts in the denominator, including
// essay and fill-blank questions that are never auto-graded.
func Score(questions []model.Question, answers map[uuid.UUID]model.Answer) int {
	return Evaluate(questions, answers).Score
}

// Breakdown is the per-attempt grading summary shown on the results screen.
type Breakdown struct {
	Score        int `json:"score"`
	Correct      int `json:"correct"`
	Answered     int `json:"answered"`
	Ungraded     int `json:"ungraded"`
	Total        int `json:"total"`
	EarnedPoints int `json:"earned_points"`
	TotalPoints  int `json:"total_points"`
}

// Evaluate grades answers against the question snapshot.
func Evaluate(questions []model.Question, answers map[uuid.UUID]model.Answer) Breakdown {
	b := Breakdown{Total: len(questions)}
	for _, q := range questions {
		b.TotalPoints += q.Points

		ans, ok := answers[q.ID]
		if ok && !ans.IsZero() {
			b.Answered++
		}
		if !q.Type.AutoGradable() {
			b.Ungraded++
			continue
		}
		if !ok || q.CorrectAnswer == nil {
			continue
		}
		if ans.Equal(*q.CorrectAnswer) {
			b.Correct++
			b.EarnedPoints += q.Points
		}
	}

	if b.Total == 0 {
		return b
	}
	b.Score = int(math.Round(float64(b.Correct) / float64(b.Total) * 100))
	return b
}
