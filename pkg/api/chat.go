package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/dispatch"
)

// chatRequest is the one-shot chat request body of §6.
type chatRequest struct {
	Message     string         `json:"message" binding:"required"`
	SessionID   string         `json:"session_id"`
	AssistantID string         `json:"assistant_id"`
	UserContext map[string]any `json:"user_context"`
}

// recordingChannel is a stream.Channel that appends every frame to an
// in-memory slice instead of writing to a live connection. CreateChat uses
// one to collect a turn's full event sequence for the one-shot response.
type recordingChannel struct {
	mu     sync.Mutex
	frames []map[string]any
}

func (r *recordingChannel) Send(_ context.Context, msg map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, msg)
	return nil
}

func (r *recordingChannel) snapshot() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, len(r.frames))
	copy(out, r.frames)
	return out
}

// CreateChat handles the one-shot chat endpoint: it runs a full turn
// synchronously, recording every event the dispatcher emits instead of
// streaming them, and returns the complete sequence in the response body.
func (s *Server) CreateChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{ErrorCode: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	userID := userIDFromContext(c)
	recorder := &recordingChannel{}

	// The dispatcher addresses the recorder by session id, but a new
	// session's id isn't known until GetOrCreateSession runs inside
	// Dispatch. A placeholder connection keyed by the caller-supplied
	// session id (if any) covers the resume case; for a brand-new session
	// the dispatcher's first SendEvent targets an id the recorder was never
	// registered under, so register it under every id Dispatch could
	// plausibly use by connecting after resolving up front instead.
	sessionID, err := s.resolveSessionID(c, userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	s.connection.Connect(recorder, sessionID)
	defer s.connection.Disconnect(sessionID)

	turn := dispatch.Turn{
		UserID:      userID,
		AssistantID: req.AssistantID,
		SessionID:   sessionID,
		Message:     req.Message,
		UserContext: req.UserContext,
	}

	resultSessionID, err := s.dispatcher.Dispatch(c.Request.Context(), turn)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": resultSessionID,
		"events":     recorder.snapshot(),
	})
}

// resolveSessionID ensures a session id exists before Dispatch runs, so the
// recording channel can be connected under the id the dispatcher will
// actually address. An empty req.SessionID creates a new session up front;
// Dispatch's own GetOrCreateSession then finds it already present and
// reuses it rather than creating a second row.
func (s *Server) resolveSessionID(c *gin.Context, userID string, req chatRequest) (string, error) {
	if req.SessionID != "" {
		return req.SessionID, nil
	}
	sess, err := s.sessions.GetOrCreateSession(c.Request.Context(), userID, req.AssistantID, "")
	if err != nil {
		return "", err
	}
	return sess.SessionID, nil
}

// CancelChat handles POST /api/chat/:session_id/cancel.
func (s *Server) CancelChat(c *gin.Context) {
	sessionID := c.Param("session_id")
	if !s.dispatcher.CancelTurn(sessionID) {
		c.JSON(http.StatusNotFound, errorEnvelope{ErrorCode: "SESSION_NOT_FOUND", Message: "no active task for session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "session_id": sessionID})
}
