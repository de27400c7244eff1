package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam session of a browser context over WebSocket.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/learner/session
// Pushes notifications and accepts answer, signal and submit actions.
// Closing the socket does not abandon the session.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID).
		Str("context_id", claims.ContextID()).
		Logger()
	wsLog.Info().Msg("Learner connected")

	notes, unsubscribe := h.sessionService.Subscribe(claims)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notes:
				if !ok {
					return
				}
				if err := conn.WriteTyped(ws.NotificationEvent{Event: ws.EventNotification, Notification: n}); err != nil {
					wsLog.Debug().Err(err).Msg("Notification write failed")
					return
				}
			}
		}
	}()

	if view, err := h.sessionService.Current(ctx, claims); err == nil {
		_ = conn.WriteTyped(ws.StateEvent{Event: ws.EventState, Session: view})
	}

	for {
		var msg ws.Request
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}
		h.dispatch(ctx, conn, wsLog, claims, &msg)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, log zerolog.Logger, claims *service.Claims, msg *ws.Request) {
	var (
		view     exam.View
		reaction *exam.Reaction
		err      error
	)

	switch msg.Action {
	case ws.ActionPing:
		_ = conn.WriteTyped(ws.PongEvent{Event: ws.EventPong})
		return

	case ws.ActionAnswer:
		qid, perr := uuid.Parse(msg.QuestionID)
		if perr != nil {
			h.writeCode(conn, response.ErrInvalidID)
			return
		}
		view, err = h.sessionService.RecordAnswer(ctx, claims, qid, msg.Value)

	case ws.ActionSignal:
		if msg.Signal == nil {
			h.writeCode(conn, response.ErrInvalidPayload)
			return
		}
		var r exam.Reaction
		r, err = h.sessionService.Signal(ctx, claims, exam.SignalFromRequest(*msg.Signal))
		if err == nil {
			reaction = &r
			view, err = h.sessionService.Current(ctx, claims)
			if errors.Is(err, service.ErrNoActiveSession) {
				// Terminated by this signal; the notification carries the outcome.
				err = nil
			}
		}

	case ws.ActionSubmit:
		var res service.SubmitResult
		res, err = h.sessionService.Submit(ctx, claims)
		view = res.View

	case ws.ActionConfirmTermination:
		view, err = h.sessionService.ConfirmTermination(ctx, claims)

	case ws.ActionLeave:
		err = h.sessionService.Leave(ctx, claims)
		if err == nil {
			return
		}

	default:
		log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		h.writeCode(conn, response.ErrInvalidPayload)
		return
	}

	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("action", string(msg.Action)).Msg("Action failed")
		}
		h.writeCode(conn, code)
		return
	}

	_ = conn.WriteTyped(ws.StateEvent{Event: ws.EventState, Session: view, Reaction: reaction})
}

func (h *WSHandler) writeCode(conn *ws.Conn, code response.ErrCode) {
	_ = conn.WriteError(string(code), response.GetMessage(code))
}
