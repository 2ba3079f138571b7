package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/store"
)

// sessionView is the wire shape of one session in list/get responses.
type sessionView struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	AssistantID string `json:"assistant_id"`
	CreatedAt   string `json:"created_at"`
	LastActive  string `json:"last_active"`
}

func toSessionView(s store.Session) sessionView {
	return sessionView{
		SessionID:   s.SessionID,
		UserID:      s.UserID,
		AssistantID: s.AssistantID,
		CreatedAt:   s.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		LastActive:  s.LastActive.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
}

// ListSessions handles GET /api/sessions, scoped to the authenticated
// caller's own sessions.
func (s *Server) ListSessions(c *gin.Context) {
	userID := userIDFromContext(c)
	sessions, err := s.sessions.ListUserSessions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, toSessionView(sess))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views, "total": len(views)})
}

// GetSession handles GET /api/sessions/:session_id.
func (s *Server) GetSession(c *gin.Context) {
	sess, err := s.sessions.GetSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionView(sess))
}

// DeleteSession handles DELETE /api/sessions/:session_id, recording an
// audit entry for the deletion per §3a.
func (s *Server) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	userID := userIDFromContext(c)

	if _, err := s.sessions.GetSession(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}

	if err := s.sessions.DeleteSession(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}

	s.recordAudit(c, userID, "session.delete", "session", sessionID, nil)
	c.Status(http.StatusNoContent)
}

// messageView is the wire shape of one persisted message.
type messageView struct {
	MessageID string         `json:"message_id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func toMessageView(m store.Message) messageView {
	return messageView{
		MessageID: m.MessageID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		Metadata:  m.Metadata,
	}
}

// GetSessionMessages handles GET /api/sessions/:session_id/messages.
func (s *Server) GetSessionMessages(c *gin.Context) {
	sessionID := c.Param("session_id")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	messages, err := s.messages.GetMessages(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	total, err := s.messages.CountMessages(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, toMessageView(m))
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": views,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// queryInt parses a query parameter as an int, falling back to def on
// absence or a malformed value.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// recordAudit writes a best-effort audit log entry. A failure here never
// fails the caller's request — the mutation already succeeded — but is
// logged loudly since a missing audit entry is a compliance gap.
func (s *Server) recordAudit(c *gin.Context, userID, action, targetType, targetID string, detail map[string]any) {
	if s.auditLog == nil {
		return
	}
	_, err := s.auditLog.Record(c.Request.Context(), store.AuditLog{
		UserID:     userID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	})
	if err != nil {
		loggerFromContext(c.Request.Context()).Error("audit log write failed",
			"action", action, "target_type", targetType, "target_id", targetID, "error", err)
	}
}
