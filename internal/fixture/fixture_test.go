package fixture

import (
	"testing"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_Embedded(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)

	require.Len(t, cat.Questions, 4)
	require.Len(t, cat.Assessments, 3)

	capital := cat.Questions[0]
	require.NotNil(t, capital.CorrectAnswer)
	require.NotNil(t, capital.CorrectAnswer.Choice)
	assert.Equal(t, 0, *capital.CorrectAnswer.Choice)

	compiled := cat.Questions[1]
	require.NotNil(t, compiled.CorrectAnswer)
	require.NotNil(t, compiled.CorrectAnswer.Text)
	assert.Equal(t, "true", *compiled.CorrectAnswer.Text)

	assert.Nil(t, cat.Questions[2].CorrectAnswer)

	midterm := cat.Assessments[0]
	assert.Equal(t, model.AssessmentStatusPublished, midterm.Status)
	assert.Len(t, midterm.Questions, 3)
	assert.Equal(t, 13, midterm.TotalPoints)
	assert.Equal(t, 7200, midterm.DurationSeconds())
	assert.NotNil(t, midterm.ScheduledAt)
}

func TestParseCatalog_SnapshotsQuestions(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)

	cat.Questions[0].Options[0] = "changed"
	quiz := cat.Assessments[1]
	assert.Equal(t, "Kigali", quiz.Questions[0].Options[0])
}

func TestParseCatalog_UnknownQuestion(t *testing.T) {
	_, err := ParseCatalog([]byte(`
assessments:
  - id: 6f1c2b9a-0d3e-4b7a-8c21-5e4d3c2b1a09
    title: Broken
    question_ids: [0b9d1f2e-4c1a-4f59-9a53-6f0f3c2d1a99]
`))
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestLoadUsers_Embedded(t *testing.T) {
	users, err := LoadUsers("")
	require.NoError(t, err)
	require.Len(t, users, 4)

	assert.Equal(t, "student@icc.edu", users[0].Email)
	assert.Equal(t, model.RoleStudent, users[0].Role)
	assert.Equal(t, model.RoleAdministrator, users[2].Role)
	assert.Equal(t, model.UserStatusActive, users[3].Status)
}
