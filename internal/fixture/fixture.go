// Package fixture loads the seed catalog and user directory from YAML.
package fixture

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

//go:embed data/users.yaml
var defaultUsers []byte

var ErrUnknownQuestion = errors.New("assessment references unknown question")

// Catalog is the decoded seed catalog.
type Catalog struct {
	Questions   []model.Question
	Assessments []model.Assessment
}

type catalogFile struct {
	Questions   []questionEntry   `yaml:"questions"`
	Assessments []assessmentEntry `yaml:"assessments"`
}

type questionEntry struct {
	ID            uuid.UUID `yaml:"id"`
	QuestionText  string    `yaml:"question_text"`
	Type          string    `yaml:"type"`
	Options       []string  `yaml:"options"`
	CorrectAnswer any       `yaml:"correct_answer"`
	Points        int       `yaml:"points"`
	Difficulty    string    `yaml:"difficulty"`
	Subject       string    `yaml:"subject"`
	Topic         string    `yaml:"topic"`
}

type assessmentEntry struct {
	ID               uuid.UUID   `yaml:"id"`
	Title            string      `yaml:"title"`
	Description      string      `yaml:"description"`
	Subject          string      `yaml:"subject"`
	DurationMinutes  int         `yaml:"duration_minutes"`
	Status           string      `yaml:"status"`
	CreatedBy        string      `yaml:"created_by"`
	CreatedAt        time.Time   `yaml:"created_at"`
	ScheduledAt      *time.Time  `yaml:"scheduled_at"`
	AllowedAttempts  int         `yaml:"allowed_attempts"`
	ShuffleQuestions bool        `yaml:"shuffle_questions"`
	ShuffleOptions   bool        `yaml:"shuffle_options"`
	EnforceTimeLimit bool        `yaml:"enforce_time_limit"`
	EnableProctoring bool        `yaml:"enable_proctoring"`
	QuestionIDs      []uuid.UUID `yaml:"question_ids"`
}

type usersFile struct {
	Users []userEntry `yaml:"users"`
}

type userEntry struct {
	ID           string `yaml:"id"`
	Username     string `yaml:"username"`
	Email        string `yaml:"email"`
	Role         string `yaml:"role"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	Department   string `yaml:"department"`
	Status       string `yaml:"status"`
	PasswordHash string `yaml:"password_hash"`
}

// LoadCatalog reads a catalog file, or the embedded seed when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := read(path, defaultCatalog)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML. Assessments receive snapshot copies of
// the questions they reference.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	cat := &Catalog{}
	byID := make(map[uuid.UUID]model.Question, len(f.Questions))
	for _, e := range f.Questions {
		q := model.Question{
			ID:           e.ID,
			QuestionText: e.QuestionText,
			Type:         model.QuestionType(e.Type),
			Options:      e.Options,
			Points:       e.Points,
			Difficulty:   model.Difficulty(e.Difficulty),
			Subject:      e.Subject,
			Topic:        e.Topic,
		}
		if q.Points <= 0 {
			q.Points = 1
		}
		if q.Difficulty == "" {
			q.Difficulty = model.DifficultyMedium
		}
		if e.CorrectAnswer != nil {
			ans, err := model.AnswerFromValue(e.CorrectAnswer)
			if err != nil {
				return nil, fmt.Errorf("question %s: %w", e.ID, err)
			}
			q.CorrectAnswer = &ans
		}
		byID[q.ID] = q
		cat.Questions = append(cat.Questions, q)
	}

	for _, e := range f.Assessments {
		a := model.Assessment{
			ID:               e.ID,
			Title:            e.Title,
			Description:      e.Description,
			Subject:          e.Subject,
			DurationMinutes:  e.DurationMinutes,
			Status:           model.AssessmentStatus(e.Status),
			CreatedBy:        e.CreatedBy,
			CreatedAt:        e.CreatedAt,
			UpdatedAt:        e.CreatedAt,
			ScheduledAt:      e.ScheduledAt,
			AllowedAttempts:  e.AllowedAttempts,
			ShuffleQuestions: e.ShuffleQuestions,
			ShuffleOptions:   e.ShuffleOptions,
			EnforceTimeLimit: e.EnforceTimeLimit,
			EnableProctoring: e.EnableProctoring,
		}
		if a.AllowedAttempts < 1 {
			a.AllowedAttempts = 1
		}
		for _, qid := range e.QuestionIDs {
			q, ok := byID[qid]
			if !ok {
				return nil, fmt.Errorf("%w: %s in %s", ErrUnknownQuestion, qid, e.ID)
			}
			a.Questions = append(a.Questions, q.Clone())
		}
		a.RecomputeTotalPoints()
		cat.Assessments = append(cat.Assessments, a)
	}
	return cat, nil
}

// LoadUsers reads a user directory file, or the embedded seed when path is empty.
func LoadUsers(path string) ([]model.User, error) {
	data, err := read(path, defaultUsers)
	if err != nil {
		return nil, err
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]model.User, 0, len(f.Users))
	for _, e := range f.Users {
		users = append(users, model.User{
			ID:           e.ID,
			Username:     e.Username,
			Email:        strings.ToLower(strings.TrimSpace(e.Email)),
			Role:         model.Role(e.Role),
			FirstName:    e.FirstName,
			LastName:     e.LastName,
			Department:   e.Department,
			Status:       model.UserStatus(e.Status),
			PasswordHash: e.PasswordHash,
		})
	}
	return users, nil
}

func read(path string, fallback []byte) ([]byte, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
