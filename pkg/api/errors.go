package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/events"
	"github.com/northfold/agentrelay/pkg/mcp"
	"github.com/northfold/agentrelay/pkg/store"
	"github.com/northfold/agentrelay/pkg/stream"
)

// ErrUnauthorized is raised by auth middleware; it has no home in any
// lower-level package since authentication itself lives at this layer.
var ErrUnauthorized = errors.New("api: unauthorized")

// errorEnvelope is the §6 wire shape of every non-2xx response.
type errorEnvelope struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

// mapServiceError translates a sentinel error from the store/stream/mcp
// packages into an HTTP status and a structured errorEnvelope.
func mapServiceError(err error) (int, errorEnvelope) {
	var valErr *store.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, errorEnvelope{ErrorCode: "VALIDATION_ERROR", Message: valErr.Error()}
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorEnvelope{ErrorCode: "SESSION_NOT_FOUND", Message: "resource not found"}
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict, errorEnvelope{ErrorCode: "ALREADY_EXISTS", Message: "resource already exists"}
	case errors.Is(err, stream.ErrAtCapacity), errors.Is(err, mcp.ErrCapacityExceeded):
		return http.StatusServiceUnavailable, errorEnvelope{ErrorCode: "CAPACITY_EXCEEDED", Message: "at capacity"}
	case errors.Is(err, stream.ErrSessionDisconnected):
		return http.StatusGone, errorEnvelope{ErrorCode: "SERVICE_UNAVAILABLE", Message: "session disconnected"}
	case errors.Is(err, mcp.ErrNoConnection):
		return http.StatusServiceUnavailable, errorEnvelope{ErrorCode: "SERVICE_UNAVAILABLE", Message: "mcp server not connected"}
	case errors.Is(err, events.ErrUnknownEventType):
		return http.StatusBadRequest, errorEnvelope{ErrorCode: "UNKNOWN_EVENT_TYPE", Message: err.Error()}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorEnvelope{ErrorCode: "UNAUTHORIZED", Message: "unauthorized"}
	}

	slog.Error("unexpected service error", "error", err)
	return http.StatusInternalServerError, errorEnvelope{ErrorCode: "INTERNAL_ERROR", Message: "internal server error"}
}

// writeError maps err and writes the corresponding JSON error envelope.
func writeError(c *gin.Context, err error) {
	status, body := mapServiceError(err)
	c.JSON(status, body)
}

// abortUnauthorized writes a 401 envelope directly, without going through
// mapServiceError, for middleware-level rejections that never reach a
// handler.
func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope{ErrorCode: "UNAUTHORIZED", Message: message})
}
