package agent

import (
	"context"

	"github.com/northfold/agentrelay/pkg/events"
)

// EchoExecutor is a placeholder Executor: it emits the caller's message back
// as a single final text event, making no model calls and no tool calls. It exists so cmd/agentrelay has a
// concrete agent.Factory to wire against; a real LLM/tool-execution engine
// is out of scope here and is expected to replace it behind the same
// Executor interface.
type EchoExecutor struct{}

// Run satisfies Executor. It ignores ctx cancellation beyond the initial
// check since there is no long-running work to interrupt.
func (EchoExecutor) Run(ctx context.Context, cfg Config, _ DecisionResolver, emit func(events.Event)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	emit(events.NewText(cfg.Message, true))
	return nil
}

// EchoFactory builds an EchoExecutor for every session, ignoring
// sessionID since EchoExecutor carries no per-session state.
type EchoFactory struct{}

func (EchoFactory) NewExecutor(sessionID string) Executor {
	return EchoExecutor{}
}
