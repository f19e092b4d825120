package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bizmatters/deviation-service/internal/auth"
	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/models"
	"github.com/bizmatters/deviation-service/internal/orchestration"
	"github.com/bizmatters/deviation-service/internal/record"
)

var liveTracer = otel.Tracer("live-per-minute")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	// Browsers connect from the meeting UI origin; the token check below is
	// the access control.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LivePerMinute handles WebSocket /api/ws/:workflow/per-minute
// @Summary Live per-minute updates
// @Description Each client frame carries one minute of transcript; the server replies with the updated record. The connection holds the current record between frames.
// @Tags workflows
// @Param workflow path string true "Workflow name"
// @Param token query string false "JWT when the client cannot set headers"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/{workflow}/per-minute [get]
func (h *Handler) LivePerMinute(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "User not authenticated",
			Code:  models.ErrCodeUnauthorized,
		})
		return
	}
	workflow := c.Param("workflow")
	wf, ok := orchestration.Lookup(workflow)
	if !ok || !wf.Supports(orchestration.StagePerMinute) {
		h.fail(c, fault.Input("live", "workflow %q has no live per-minute stage", workflow))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The hijacked request's context is not cancelled when the client goes
	// away, so the session owns its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, span := liveTracer.Start(ctx, "live.per_minute")
	defer span.End()
	span.SetAttributes(
		attribute.String("workflow", wf.Name),
		attribute.String("user.id", userID),
	)

	h.logger.Info("live session started", zap.String("workflow", wf.Name), zap.String("user_id", userID))

	done := make(chan struct{})
	pingerExited := make(chan struct{})
	go func() {
		defer close(pingerExited)
		keepAlive(conn, done)
	}()
	defer func() {
		close(done)
		<-pingerExited
	}()

	frames := h.serveLive(ctx, conn, wf.Name, userID)
	span.SetAttributes(attribute.Int("frames", frames))
	h.logger.Info("live session ended", zap.String("workflow", wf.Name), zap.Int("frames", frames))
}

// serveLive reads frames until the client disconnects and returns how many
// were processed.
func (h *Handler) serveLive(ctx context.Context, conn *websocket.Conn, workflow, userID string) int {
	conn.SetReadLimit(h.cfg.MaxUploadBytes)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var current *record.Record
	frames := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		var frame models.LiveFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("live session read failed", zap.Error(err))
			}
			return frames
		}
		frames++

		reply := h.liveTurn(ctx, workflow, userID, &current, frame)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("live session write failed", zap.Error(err))
			return frames
		}
	}
}

// liveTurn runs one per-minute turn. A frame that carries a record replaces
// the session's current record before the turn.
func (h *Handler) liveTurn(ctx context.Context, workflow, userID string, current **record.Record, frame models.LiveFrame) models.LiveReply {
	if len(frame.Record) > 0 {
		rec, err := decodeRecord(frame.Record)
		if err != nil {
			return liveError(fault.Input("live", "invalid record: %v", err))
		}
		*current = rec
	}

	out, err := h.service.PerMinute(ctx, workflow, orchestration.Request{
		Record:     *current,
		Transcript: frame.Transcript,
		UserID:     userID,
	})
	if err != nil {
		return liveError(err)
	}
	raw, err := out.Record.MarshalJSON()
	if err != nil {
		return liveError(err)
	}
	*current = out.Record
	return models.LiveReply{Record: raw, Fallback: out.Fallback, Changed: out.Changed}
}

func liveError(err error) models.LiveReply {
	_, resp := errorResponse(err)
	return models.LiveReply{Error: &resp}
}

func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
