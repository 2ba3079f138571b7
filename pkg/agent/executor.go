// Package agent defines the boundary between the streaming dispatcher and
// the LLM/tool-execution engine that actually runs a turn. The engine itself
// (model calls, tool loop, ReAct/native-thinking strategy) is out of scope —
// only the interface shape the dispatcher depends on is specified here.
package agent

import (
	"context"

	"github.com/northfold/agentrelay/pkg/events"
)

// Config carries everything an Executor needs to run one turn: the
// caller's identity, the assistant it is talking to, injected tools, and the
// composed user/system context built from the profile, rule engine, and
// memory loader.
type Config struct {
	UserID        string
	AssistantID   string
	SessionID     string
	WorkspacePath string
	Message       string
	SystemPrompt  string
	Tools         []ToolDefinition
	UserContext   map[string]any
}

// ToolDefinition describes one tool available to the executor for this
// turn, sourced from the MCP connection pool (C6).
type ToolDefinition struct {
	ServerName  string
	Name        string
	Description string
	InputSchema any
}

// DecisionResolver requests human approval for a pending tool call mid-turn.
// The streaming dispatcher supplies an adapter over the HITL handler (C9);
// executors never talk to the connection manager directly.
type DecisionResolver interface {
	RequestApproval(ctx context.Context, actionRequests []events.ActionRequest) (approved bool, message string)
}

// Executor runs one conversational turn, emitting events as it goes. Run
// blocks until the turn completes, is cancelled via ctx, or fails
// unrecoverably; it must not emit a terminal "done" event itself — the
// dispatcher appends that once Run returns.
type Executor interface {
	Run(ctx context.Context, cfg Config, decisions DecisionResolver, emit func(events.Event)) error
}

// Factory builds an Executor bound to a specific session's thread identity.
// Implementations typically wrap a LangGraph-equivalent checkpointer keyed
// by session_id so a turn resumes prior conversational state.
type Factory interface {
	NewExecutor(sessionID string) Executor
}
