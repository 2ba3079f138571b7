package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/dispatch"
	"github.com/northfold/agentrelay/pkg/events"
	"github.com/northfold/agentrelay/pkg/stream"
)

// writeTimeout bounds every frame the connection manager writes to a
// streaming client.
const writeTimeout = 10 * time.Second

// newSessionSentinel is the path value a client passes for :session_id to
// request a brand-new session, resolved from the assistant_id query
// parameter at connect time since a channel must be bound to a concrete
// session id before any chat frame can arrive.
const newSessionSentinel = "new"

// clientFrame is the envelope of every inbound WebSocket message, per §6:
// {type, payload} with type in {chat, hitl_decision, cancel, ping}.
type clientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type chatFramePayload struct {
	Message     string         `json:"message"`
	AssistantID string         `json:"assistant_id"`
	UserContext map[string]any `json:"user_context"`
}

type hitlDecisionPayload struct {
	Decision struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"decision"`
}

// StreamChat handles GET /api/chat/stream/:session_id, upgrading to a
// WebSocket and binding it to the connection manager for the lifetime of
// the connection. It reads client frames until the socket closes, running
// each "chat" turn in its own goroutine so hitl_decision/cancel/ping frames
// can still be serviced while a turn is in flight.
func (s *Server) StreamChat(c *gin.Context) {
	userID := userIDFromContext(c)

	sessionID := c.Param("session_id")
	if sessionID == newSessionSentinel {
		sess, err := s.sessions.GetOrCreateSession(c.Request.Context(), userID, c.Query("assistant_id"), "")
		if err != nil {
			writeError(c, err)
			return
		}
		sessionID = sess.SessionID
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	channel := stream.NewWSChannel(conn, writeTimeout)
	if !s.connection.Connect(channel, sessionID) {
		_ = conn.Close(websocket.StatusTryAgainLater, "at capacity")
		return
	}
	defer s.connection.Disconnect(sessionID)

	ctx := c.Request.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.connection.SendEvent(ctx, sessionID, events.NewError("malformed frame: "+err.Error(), true))
			continue
		}

		switch frame.Type {
		case "chat":
			s.handleChatFrame(ctx, sessionID, userID, frame.Payload)
		case "hitl_decision":
			s.handleDecisionFrame(sessionID, frame.Payload)
		case "cancel":
			s.dispatcher.CancelTurn(sessionID)
		case "ping":
			s.connection.Send(ctx, sessionID, map[string]any{"event_type": "pong"})
		default:
			s.connection.SendEvent(ctx, sessionID, events.NewError("unknown frame type: "+frame.Type, true))
		}
	}
}

// handleChatFrame runs one turn to completion in its own goroutine, sending
// a terminal stream_end marker once the dispatcher's own done/error events
// have been emitted. It never blocks the caller: the read loop must stay
// free to service hitl_decision and cancel frames for the turn it starts.
func (s *Server) handleChatFrame(ctx context.Context, sessionID, userID string, raw json.RawMessage) {
	var payload chatFramePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.connection.SendEvent(ctx, sessionID, events.NewError("malformed chat payload: "+err.Error(), true))
		return
	}

	go func() {
		turn := dispatch.Turn{
			UserID:      userID,
			AssistantID: payload.AssistantID,
			SessionID:   sessionID,
			Message:     payload.Message,
			UserContext: payload.UserContext,
		}
		_, _ = s.dispatcher.Dispatch(context.Background(), turn)
		s.connection.SendEvent(context.Background(), sessionID, events.Event{Type: events.TypeStreamEnd, Timestamp: time.Now().UTC()})
	}()
}

// handleDecisionFrame resolves the session's pending HITL slot, if any.
func (s *Server) handleDecisionFrame(sessionID string, raw json.RawMessage) {
	var payload hitlDecisionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	decisionType := stream.DecisionReject
	if payload.Decision.Type == string(stream.DecisionApprove) {
		decisionType = stream.DecisionApprove
	}
	s.connection.ResolveDecision(sessionID, stream.Decision{Type: decisionType, Message: payload.Decision.Message})
}
