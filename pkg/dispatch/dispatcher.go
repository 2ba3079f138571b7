// Package dispatch implements the streaming dispatcher (C11): the glue
// between an inbound chat turn, the session/profile/rule/memory/MCP
// subsystems that build its context, an agent executor that runs it, and
// the connection manager that carries its events to the client.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/northfold/agentrelay/pkg/agent"
	"github.com/northfold/agentrelay/pkg/events"
	"github.com/northfold/agentrelay/pkg/hitl"
	"github.com/northfold/agentrelay/pkg/mcp"
	"github.com/northfold/agentrelay/pkg/memory"
	"github.com/northfold/agentrelay/pkg/rules"
	"github.com/northfold/agentrelay/pkg/session"
	"github.com/northfold/agentrelay/pkg/store"
	"github.com/northfold/agentrelay/pkg/stream"
)

// Turn is one inbound chat request.
type Turn struct {
	UserID      string
	AssistantID string
	SessionID   string // empty creates a new session
	Message     string
	UserContext map[string]any
}

// Dispatcher runs turns end to end per §4.11: resolve/create the session,
// compose the executor's context, run it, relay events to the client over
// the connection manager, and persist the transcript.
type Dispatcher struct {
	sessions   *session.Manager
	messages   store.MessageStore
	profiles   store.ProfileStore
	ruleStore  rules.Store
	merger     *rules.Merger
	memoryCfg  memory.Config
	pool       *mcp.Pool
	factory    agent.Factory
	hitl       *hitl.Handler
	connection *stream.Manager
	logger     *slog.Logger
}

// New builds a Dispatcher wiring every subsystem it orchestrates.
func New(
	sessions *session.Manager,
	messages store.MessageStore,
	profiles store.ProfileStore,
	ruleStore rules.Store,
	merger *rules.Merger,
	memoryCfg memory.Config,
	pool *mcp.Pool,
	factory agent.Factory,
	hitlHandler *hitl.Handler,
	connection *stream.Manager,
) *Dispatcher {
	return &Dispatcher{
		sessions:   sessions,
		messages:   messages,
		profiles:   profiles,
		ruleStore:  ruleStore,
		merger:     merger,
		memoryCfg:  memoryCfg,
		pool:       pool,
		factory:    factory,
		hitl:       hitlHandler,
		connection: connection,
		logger:     slog.Default(),
	}
}

// hitlAdapter satisfies agent.DecisionResolver by delegating to the HITL
// handler bound to one session.
type hitlAdapter struct {
	handler   *hitl.Handler
	sessionID string
}

func (a hitlAdapter) RequestApproval(ctx context.Context, actionRequests []events.ActionRequest) (bool, string) {
	decision := a.handler.RequestApproval(ctx, a.sessionID, actionRequests)
	return decision.Type == stream.DecisionApprove, decision.Message
}

// Dispatch runs one turn: steps 1-7 of §4.11. It returns once the executor
// has finished (normally, cancelled, or failed); the terminal "done" or
// "error"+"done" pair is sent before Dispatch returns. A failure to resolve
// the session, persist the user message or build the agent config returns
// that error before any executor runs, and no event is sent.
func (d *Dispatcher) Dispatch(ctx context.Context, turn Turn) (sessionID string, err error) {
	sess, err := d.sessions.GetOrCreateSession(ctx, turn.UserID, turn.AssistantID, turn.SessionID)
	if err != nil {
		return "", fmt.Errorf("dispatch: resolve session: %w", err)
	}
	sessionID = sess.SessionID

	if _, err := d.messages.SaveMessage(ctx, sessionID, store.RoleUser, turn.Message, nil); err != nil {
		return sessionID, fmt.Errorf("dispatch: persist user message: %w", err)
	}

	cfg, err := d.buildAgentConfig(ctx, sess, turn)
	if err != nil {
		return sessionID, fmt.Errorf("dispatch: build agent config: %w", err)
	}

	executor := d.factory.NewExecutor(sessionID)
	decisions := hitlAdapter{handler: d.hitl, sessionID: sessionID}

	var finalText string
	emit := func(ev events.Event) {
		if ev.Type == events.TypeText && ev.Text != nil {
			finalText += ev.Text.Content
		}
		d.connection.SendEvent(ctx, sessionID, ev)
	}

	done := make(chan error, 1)
	task := d.connection.StartTask(sessionID, func(taskCtx context.Context) {
		done <- executor.Run(taskCtx, cfg, decisions, emit)
	})

	runErr := <-done
	<-task.Done()

	switch {
	case runErr == nil:
		if finalText != "" {
			_, _ = d.messages.SaveMessage(ctx, sessionID, store.RoleAssistant, finalText, nil)
		}
		d.connection.SendEvent(ctx, sessionID, events.NewDone(nil, false))
	case errors.Is(runErr, context.Canceled):
		d.connection.SendEvent(ctx, sessionID, events.NewDone(nil, true))
	default:
		d.logger.Error("executor run failed", "session_id", sessionID, "error", runErr)
		d.connection.SendEvent(ctx, sessionID, events.NewError(runErr.Error(), false))
		d.connection.SendEvent(ctx, sessionID, events.NewDone(nil, false))
	}

	return sessionID, nil
}

// buildAgentConfig composes step 2 of §4.11: injected MCP tools for this
// user, the rule-engine prompt section, and memory, folded into one
// system prompt.
func (d *Dispatcher) buildAgentConfig(ctx context.Context, sess store.Session, turn Turn) (agent.Config, error) {
	toolsByServer, err := d.pool.GetToolsByServer(ctx, turn.UserID)
	if err != nil {
		d.logger.Warn("mcp tool listing failed, continuing without tools", "user_id", turn.UserID, "error", err)
		toolsByServer = nil
	}
	var tools []agent.ToolDefinition
	for serverName, serverTools := range toolsByServer {
		for _, t := range serverTools {
			tools = append(tools, agent.ToolDefinition{
				ServerName:  serverName,
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
	}

	allRules, err := d.ruleStore.ListForScope(ctx, []rules.ScopeRef{
		{Scope: rules.ScopeGlobal},
		{Scope: rules.ScopeUser, ScopeID: turn.UserID},
		{Scope: rules.ScopeProject, ScopeID: turn.AssistantID},
		{Scope: rules.ScopeSession, ScopeID: sess.SessionID},
	})
	if err != nil {
		return agent.Config{}, fmt.Errorf("load rules: %w", err)
	}
	composition := rules.Compose(allRules, rules.MatchContext{
		SessionID:   sess.SessionID,
		AssistantID: turn.AssistantID,
		Query:       turn.Message,
		ManualRefs:  rules.ExtractManualReferences(turn.Message),
		Files:       rules.ExtractFileReferences(turn.Message),
	}, d.merger)

	loader := memory.NewLoader(d.memoryCfg, turn.UserID, turn.AssistantID)
	memContent := loader.Load()
	systemPrompt := loader.ComposeSystemPrompt(composition.Prompt, memContent)

	userContext := turn.UserContext
	if profile, profileErr := d.profiles.Get(ctx, turn.UserID); profileErr == nil {
		if userContext == nil {
			userContext = map[string]any{}
		}
		userContext["display_name"] = profile.DisplayName
		userContext["department"] = profile.Department
		userContext["role"] = profile.Role
	}

	return agent.Config{
		UserID:        turn.UserID,
		AssistantID:   turn.AssistantID,
		SessionID:     sess.SessionID,
		WorkspacePath: "",
		Message:       turn.Message,
		SystemPrompt:  systemPrompt,
		Tools:         tools,
		UserContext:   userContext,
	}, nil
}

// CancelTurn cancels sessionID's active task, if any.
func (d *Dispatcher) CancelTurn(sessionID string) bool {
	return d.connection.CancelTask(sessionID)
}
