package exam

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	qs := sampleAssessment().Questions
	essay := model.Question{ID: uuid.New(), Type: model.QuestionTypeEssay, Points: 10}

	tests := []struct {
		name      string
		questions []model.Question
		answers   map[uuid.UUID]model.Answer
		want      int
	}{
		{
			name:      "all correct",
			questions: qs,
			answers: map[uuid.UUID]model.Answer{
				mcID: model.ChoiceAnswer(0),
				tfID: model.TextAnswer("true"),
			},
			want: 100,
		},
		{
			name:      "half correct with one unanswered",
			questions: qs,
			answers:   map[uuid.UUID]model.Answer{mcID: model.ChoiceAnswer(0)},
			want:      50,
		},
		{
			name:      "empty answers",
			questions: qs,
			answers:   map[uuid.UUID]model.Answer{},
			want:      0,
		},
		{
			name:      "index never equals string",
			questions: qs,
			answers: map[uuid.UUID]model.Answer{
				mcID: model.TextAnswer("0"),
				tfID: model.TextAnswer("True"),
			},
			want: 0,
		},
		{
			name:      "essay only",
			questions: []model.Question{essay},
			answers:   map[uuid.UUID]model.Answer{essay.ID: model.TextAnswer("A long answer")},
			want:      0,
		},
		{
			name:      "essay stays in denominator",
			questions: append(append([]model.Question(nil), qs...), essay),
			answers: map[uuid.UUID]model.Answer{
				mcID:     model.ChoiceAnswer(0),
				tfID:     model.TextAnswer("true"),
				essay.ID: model.TextAnswer("text"),
			},
			want: 67,
		},
		{
			name:      "no questions",
			questions: nil,
			answers:   nil,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.questions, tt.answers))
		})
	}
}

func TestEvaluate_Breakdown(t *testing.T) {
	qs := sampleAssessment().Questions
	essay := model.Question{ID: uuid.New(), Type: model.QuestionTypeEssay, Points: 10}
	qs = append(qs, essay)

	b := Evaluate(qs, map[uuid.UUID]model.Answer{
		mcID:     model.ChoiceAnswer(0),
		tfID:     model.TextAnswer("false"),
		essay.ID: model.TextAnswer("text"),
	})

	assert.Equal(t, 1, b.Correct)
	assert.Equal(t, 3, b.Answered)
	assert.Equal(t, 1, b.Ungraded)
	assert.Equal(t, 3, b.Total)
	assert.Equal(t, 2, b.EarnedPoints)
	assert.Equal(t, 13, b.TotalPoints)
	assert.Equal(t, 33, b.Score)
}
