package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/feed"
	"github.com/stemsi/exstem-proctor/internal/response"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler streams live proctoring events to the security monitor.
type MonitorHandler struct {
	feed      feed.Feed
	keepAlive time.Duration
	log       zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(f feed.Feed, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		feed:      f,
		keepAlive: keepAliveInterval,
		log:       log.With().Str("component", "monitor_handler").Logger(),
	}
}

// Stream godoc
// GET /api/v1/admin/monitor?assessment_id=
// Server-sent events of session starts, violations and outcomes.
func (h *MonitorHandler) Stream(c *gin.Context) {
	var only uuid.UUID
	if raw := c.Query("assessment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		only = id
	}

	reqCtx := c.Request.Context()
	events, unsubscribe, err := h.feed.Subscribe(reqCtx)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	h.log.Info().Str("assessment_id", c.Query("assessment_id")).Msg("Monitor attached")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Monitor detached")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if only != uuid.Nil && ev.AssessmentID != only {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn().Err(err).Msg("Failed to encode monitor event")
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, payload)
			c.Writer.Flush()

		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		}
	}
}
