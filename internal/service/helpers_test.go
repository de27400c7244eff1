package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/fixture"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/notify"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stretchr/testify/require"
)

var (
	midtermID  = uuid.MustParse("6f1c2b9a-0d3e-4b7a-8c21-5e4d3c2b1a01")
	draftID    = uuid.MustParse("6f1c2b9a-0d3e-4b7a-8c21-5e4d3c2b1a02")
	practiceID = uuid.MustParse("6f1c2b9a-0d3e-4b7a-8c21-5e4d3c2b1a03")

	rwandaID = uuid.MustParse("0b9d1f2e-4c1a-4f59-9a53-6f0f3c2d1a01")
	tfID     = uuid.MustParse("0b9d1f2e-4c1a-4f59-9a53-6f0f3c2d1a02")
	essayID  = uuid.MustParse("0b9d1f2e-4c1a-4f59-9a53-6f0f3c2d1a03")
	queueID  = uuid.MustParse("0b9d1f2e-4c1a-4f59-9a53-6f0f3c2d1a04")
)

type stack struct {
	catalog  *CatalogService
	sessions *ExamSessionService
	results  *ResultService
	attempts *repository.MemoryAttemptStore
	marker   *exam.MemoryMarker
	hub      *notify.Hub
}

func newStack(t *testing.T, scope string) *stack {
	t.Helper()

	cat, err := fixture.LoadCatalog("")
	require.NoError(t, err)

	log := zerolog.Nop()
	store := repository.NewMemoryCatalog(cat.Questions, cat.Assessments)
	attempts := repository.NewMemoryAttemptStore()
	marker := exam.NewMemoryMarker()
	hub := notify.NewHub()

	catalog := NewCatalogService(store, log)
	sessions := NewExamSessionService(ExamSessionDeps{
		Catalog:         catalog,
		Marker:          marker,
		Sink:            attempts,
		Hub:             hub,
		Randomizer:      exam.NewRandomizer(7),
		Policy:          exam.DefaultPolicy(),
		CompletionScope: scope,
	}, log)
	t.Cleanup(func() {
		_ = sessions.Shutdown(context.Background())
	})

	return &stack{
		catalog:  catalog,
		sessions: sessions,
		results:  NewResultService(attempts, catalog),
		attempts: attempts,
		marker:   marker,
		hub:      hub,
	}
}

func learner(contextID, userID string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: contextID, Subject: userID},
		UserID:           userID,
		Role:             model.RoleStudent,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret",
		JWTExpiry:       time.Hour,
		BcryptCost:      4,
		CompletionScope: config.CompletionScopeSession,
	}
}

// displayedIndex finds where an option text is shown to the learner.
func displayedIndex(t *testing.T, v exam.View, questionID uuid.UUID, option string) int {
	t.Helper()
	for _, q := range v.Questions {
		if q.ID != questionID {
			continue
		}
		for i, o := range q.Options {
			if o == option {
				return i
			}
		}
	}
	t.Fatalf("option %q not shown for question %s", option, questionID)
	return -1
}
