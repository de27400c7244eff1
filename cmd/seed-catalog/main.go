package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/fixture"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

func main() {
	cfg := config.Load()

	var path string
	flag.StringVar(&path, "file", cfg.CatalogFile, "Catalog YAML file (embedded seed when empty)")
	flag.Parse()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cat, err := fixture.LoadCatalog(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalog")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	store := repository.NewPostgresCatalog(pool)

	// ─── Question Bank ─────────────────────────────────────────────────
	created := 0
	for i := range cat.Questions {
		q := cat.Questions[i]
		_, err := store.GetQuestion(ctx, q.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			log.Fatal().Err(err).Str("question_id", q.ID.String()).Msg("Failed to look up question")
		}
		if err := store.CreateQuestion(ctx, &q); err != nil {
			log.Fatal().Err(err).Str("question_id", q.ID.String()).Msg("Failed to create question")
		}
		created++
	}
	log.Info().Int("created", created).Int("total", len(cat.Questions)).Msg("Question bank seeded")

	// ─── Assessments ───────────────────────────────────────────────────
	for i := range cat.Assessments {
		a := cat.Assessments[i]
		if err := store.SaveAssessment(ctx, &a); err != nil {
			log.Fatal().Err(err).Str("assessment_id", a.ID.String()).Msg("Failed to save assessment")
		}
	}
	log.Info().Int("total", len(cat.Assessments)).Msg("Assessments seeded")
}
