package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	ws "github.com/stemsi/exam-portal/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams the exam clock over a WebSocket and accepts answers and
// submission on the same connection.
type WSHandler struct {
	sessionService *service.ExamSessionService
	tickInterval   time.Duration
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, tickInterval time.Duration, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &WSHandler{
		sessionService: sessionService,
		tickInterval:   tickInterval,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exam/stream?token=
// Sends a tick event every interval while the exam is in progress and a
// submitted event once it is over, then closes.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID := claims.ID

	// Fail before upgrading so the client gets a regular HTTP error.
	if _, err := h.sessionService.Session(c.Request.Context(), sessionID); err != nil {
		failWith(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID).Logger()
	wsLog.Info().Msg("Stream connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	requests := make(chan ws.Request)
	go h.readLoop(ctx, cancel, conn, requests, wsLog)

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()
	pinger := time.NewTicker(ws.PingPeriod)
	defer pinger.Stop()

	if done := h.sendTick(ctx, conn, sessionID, wsLog); done {
		return
	}

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Stream closed")
			return

		case <-ticker.C:
			if done := h.sendTick(ctx, conn, sessionID, wsLog); done {
				return
			}

		case <-pinger.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}

		case req := <-requests:
			if done := h.handleRequest(ctx, conn, sessionID, req, wsLog); done {
				return
			}
		}
	}
}

// readLoop is the only reader of conn. It cancels ctx when the connection
// drops.
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- ws.Request, log zerolog.Logger) {
	defer cancel()
	ws.KeepAlive(conn)

	for {
		var req ws.Request
		if err := ws.ReadJSON(conn, &req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

// sendTick writes the current view. It reports true once the exam is over
// and the connection should close.
func (h *WSHandler) sendTick(ctx context.Context, conn *websocket.Conn, sessionID string, log zerolog.Logger) bool {
	view, err := h.sessionService.Tick(ctx, sessionID)
	if errors.Is(err, service.ErrSessionBusy) {
		return false
	}
	if err != nil {
		h.writeErr(conn, err, log)
		return errors.Is(err, service.ErrSessionNotFound) || ctx.Err() != nil
	}

	if view.Session.Step == model.StepSubmitted {
		_ = ws.WriteEvent(conn, ws.EventSubmitted, view)
		return true
	}
	return ws.WriteEvent(conn, ws.EventTick, view) != nil
}

func (h *WSHandler) handleRequest(ctx context.Context, conn *websocket.Conn, sessionID string, req ws.Request, log zerolog.Logger) bool {
	switch req.Action {
	case ws.ActionPing:
		return ws.WriteEvent(conn, ws.EventPong, nil) != nil

	case ws.ActionAnswer:
		if req.QID == "" {
			_ = ws.WriteError(conn, string(response.ErrValidation), "q_id is required")
			return false
		}
		sess, err := h.sessionService.RecordAnswer(ctx, sessionID, req.QID, req.Answer)
		if errors.Is(err, service.ErrTimeUp) {
			_ = ws.WriteEvent(conn, ws.EventSubmitted, gin.H{"session": sess, "auto_submitted": true})
			return true
		}
		if err != nil {
			h.writeErr(conn, err, log)
			return false
		}
		return ws.WriteEvent(conn, ws.EventSaved, gin.H{
			"question_id": req.QID,
			"answer":      sess.Answer(req.QID),
			"unanswered":  sess.Unanswered(),
		}) != nil

	case ws.ActionSubmit:
		sess, err := h.sessionService.Submit(ctx, sessionID)
		if err != nil {
			h.writeErr(conn, err, log)
			return false
		}
		body := gin.H{"session": sess}
		if sess.Summary != nil && sess.Summary.Unanswered > 0 {
			body["warning"] = UnansweredWarning
		}
		_ = ws.WriteEvent(conn, ws.EventSubmitted, body)
		log.Info().Msg("Exam submitted over stream")
		return true

	default:
		log.Warn().Str("action", string(req.Action)).Msg("Unknown action")
		_ = ws.WriteError(conn, string(response.ErrValidation), "unknown action: "+string(req.Action))
		return false
	}
}

func (h *WSHandler) writeErr(conn *websocket.Conn, err error, log zerolog.Logger) {
	_, code := classify(err)
	if code == response.ErrInternal {
		log.Error().Err(err).Msg("Stream request failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code))
}
