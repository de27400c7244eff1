package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/feed"
	"github.com/stemsi/exstem-proctor/internal/fixture"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/notify"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/router"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"github.com/stemsi/exstem-proctor/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageDriver).
		Str("completion_scope", cfg.CompletionScope).
		Msg("Starting ExStem Proctor")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Fixtures ─────────────────────────────────────────────────
	users, err := fixture.LoadUsers(cfg.UsersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load users")
	}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Stores ─────────────────────────────────────────────
	var (
		catalogStore repository.CatalogStore
		attemptStore repository.AttemptStore
		sink         exam.AttemptSink
		pool         *pgxpool.Pool
	)

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()

		attempts := repository.NewAttemptRepository(pool)
		catalogStore = repository.NewPostgresCatalog(pool)
		attemptStore = attempts
		sink = attempts
		if rdb != nil {
			sink = worker.NewAttemptQueue(rdb)
		}
	default:
		cat, err := fixture.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load catalog")
		}
		attempts := repository.NewMemoryAttemptStore()
		catalogStore = repository.NewMemoryCatalog(cat.Questions, cat.Assessments)
		attemptStore = attempts
		sink = attempts
	}

	// ─── Proctoring Ports ──────────────────────────────────────────────
	var (
		marker      exam.CompletionMarker = exam.NewMemoryMarker()
		monitorFeed feed.Feed             = feed.NewMemoryFeed()
	)
	notifiers := exam.MultiNotifier{notify.NewLogNotifier(log)}
	if rdb != nil {
		marker = exam.NewRedisMarker(rdb)
		monitorFeed = feed.NewRedisFeed(rdb, log)
		if pool != nil {
			notifiers = append(notifiers, worker.NewViolationQueue(rdb, log))
		}
	}
	notifiers = append(notifiers, notify.NewFeedNotifier(monitorFeed, log))

	// ─── Initialize Services ───────────────────────────────────────────
	authService := service.NewAuthService(cfg, users, rdb)
	catalogService := service.NewCatalogService(catalogStore, log)
	resultService := service.NewResultService(attemptStore, catalogService)
	sessionService := service.NewExamSessionService(service.ExamSessionDeps{
		Catalog:  catalogService,
		Marker:   marker,
		Sink:     sink,
		Notifier: notifiers,
		Policy: exam.Policy{
			ViolationThreshold: cfg.ViolationThreshold,
			PenaltyDelay:       cfg.PenaltyDelay,
			TerminationGrace:   cfg.TerminationGrace,
			LowTimeSeconds:     exam.DefaultPolicy().LowTimeSeconds,
		},
		Runner:          exam.RunnerOptions{TickInterval: cfg.TickInterval},
		CompletionScope: cfg.CompletionScope,
	}, log)

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, sessionService, log),
		Learner:    handler.NewLearnerHandler(sessionService, log),
		WS:         handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Assessment: handler.NewAssessmentHandler(catalogService, log),
		Question:   handler.NewQuestionHandler(catalogService, log),
		Result:     handler.NewResultHandler(resultService, log),
		Monitor:    handler.NewMonitorHandler(monitorFeed, log),
		System:     handler.NewSystemHandler(rdb, sessionService, cfg.StorageDriver, log),
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workers, workerCtx := errgroup.WithContext(workerCtx)
	if pool != nil && rdb != nil {
		startWorkers(workerCtx, workers, pool, rdb, log)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Abandon running exams so their records reach the sink.
	if err := sessionService.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Exam sessions did not close in time")
	}

	// 3. Stop workers; each flushes its buffer before returning.
	workerCancel()
	if err := workers.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
	}

	log.Info().Msg("Shutdown complete")
}

// startWorkers drains the Redis persistence queues into PostgreSQL.
func startWorkers(ctx context.Context, g *errgroup.Group, pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) {
	attemptWorker := worker.NewAttemptWorker(repository.NewAttemptRepository(pool), rdb, log)
	violationWorker := worker.NewViolationWorker(repository.NewViolationRepository(pool), rdb, log)

	g.Go(func() error { return attemptWorker.Start(ctx) })
	g.Go(func() error { return violationWorker.Start(ctx) })
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
