package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/response"
)

const probeTimeout = 2 * time.Second

// SessionCounter reports running exam sessions.
type SessionCounter interface {
	ActiveCount() int
}

// SystemHandler serves the health probe and runtime metrics.
type SystemHandler struct {
	rdb       *redis.Client
	sessions  SessionCounter
	driver    string
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil.
func NewSystemHandler(rdb *redis.Client, sessions SessionCounter, driver string, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		sessions:  sessions,
		driver:    driver,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	status := http.StatusOK
	redisState := "disabled"
	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis health probe failed")
			redisState = "down"
			status = http.StatusServiceUnavailable
		} else {
			redisState = "up"
		}
	}

	response.Success(c, status, gin.H{
		"status":          http.StatusText(status),
		"storage":         h.driver,
		"redis":           redisState,
		"active_sessions": h.sessions.ActiveCount(),
		"uptime":          formatDuration(time.Since(h.startTime)),
	})
}

type systemMetrics struct {
	Timestamp      int64  `json:"timestamp"`
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	StackInuse uint64 `json:"stack_inuse"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Worker queues, zero when Redis is disabled.
	QueueAttempts   int64 `json:"queue_attempts"`
	QueueViolations int64 `json:"queue_violations"`
}

// Metrics godoc
// GET /api/v1/admin/system
// Returns Go runtime and worker queue metrics.
func (h *SystemHandler) Metrics(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"metrics": h.collect(c.Request.Context())})
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := systemMetrics{
		Timestamp:      time.Now().Unix(),
		Uptime:         formatDuration(time.Since(h.startTime)),
		ActiveSessions: h.sessions.ActiveCount(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAlloc:      mem.HeapAlloc,
		HeapSys:        mem.HeapSys,
		StackInuse:     mem.StackInuse,
		NumGC:          mem.NumGC,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
	}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		pipe := h.rdb.Pipeline()
		attemptsCmd := pipe.LLen(ctx, config.WorkerKey.PersistAttemptsQueue)
		violationsCmd := pipe.LLen(ctx, config.WorkerKey.PersistViolationsQueue)
		if _, err := pipe.Exec(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Failed to read queue lengths")
		} else {
			m.QueueAttempts, _ = attemptsCmd.Result()
			m.QueueViolations, _ = violationsCmd.Result()
		}
	}
	return m
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
