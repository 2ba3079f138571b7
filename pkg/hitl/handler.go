// Package hitl implements human-in-the-loop approval: suspending a running
// turn to ask the connected client to approve or reject a pending tool call,
// then resuming with the client's decision (or a timeout/cancellation
// rejection).
package hitl

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/northfold/agentrelay/pkg/events"
	"github.com/northfold/agentrelay/pkg/stream"
)

// DefaultTimeout is T_hitl: how long RequestApproval waits for a client
// decision before automatically rejecting.
const DefaultTimeout = 300 * time.Second

// Handler requests human approval for pending tool calls over a session's
// channel, via the session's connection manager.
type Handler struct {
	manager *stream.Manager
	timeout time.Duration
}

// NewHandler builds a Handler bound to manager. timeout<=0 uses
// DefaultTimeout.
func NewHandler(manager *stream.Manager, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handler{manager: manager, timeout: timeout}
}

// RequestApproval emits a hitl_request event for the given action requests,
// installs the session's single pending decision slot, and blocks until the
// client resolves it, the timeout elapses, or the task/connection is
// cancelled. Always returns a Decision — never an error — since timeout and
// cancellation resolve as rejections rather than propagating.
func (h *Handler) RequestApproval(ctx context.Context, sessionID string, actionRequests []events.ActionRequest) stream.Decision {
	interruptID := uuid.NewString()
	h.manager.SendEvent(ctx, sessionID, events.NewHITLRequest(interruptID, actionRequests))

	decision, err := h.manager.WaitForDecision(ctx, sessionID, h.timeout)
	if err == nil {
		return decision
	}

	if errors.Is(err, stream.ErrDecisionTimeout) {
		return stream.Decision{Type: stream.DecisionReject, Message: "Approval timeout - automatically rejected"}
	}
	return stream.Decision{Type: stream.DecisionReject, Message: err.Error()}
}
