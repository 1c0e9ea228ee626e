package pipeline

import (
	"context"
	"log/slog"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/bus"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
)

// Dispatcher runs the single designated response agent and, on successful
// generation, delivers its output back through the messaging platform.
// Delivery failure is isolated from generation success.
type Dispatcher struct {
	invoker  *Invoker
	builder  *ContextBuilder
	platform platform.Client
	log      *slog.Logger
}

func NewDispatcher(invoker *Invoker, builder *ContextBuilder, client platform.Client, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		invoker:  invoker,
		builder:  builder,
		platform: client,
		log:      log.With("component", "pipeline.dispatcher"),
	}
}

// Run returns nil when the inbox has no response agent; that is a valid,
// common configuration.
func (d *Dispatcher) Run(ctx context.Context, in *inbox.Inbox, msg bus.InboundMessage) *AgentResult {
	if in.ResponseAgent == nil || in.ResponseAgent.Agent == nil {
		return nil
	}

	agent := in.ResponseAgent.Agent
	cred := credentialFor(in, agent)
	invocation := d.builder.Build(ctx, msg, cred)

	result := d.invoker.Invoke(ctx, agent, invocation, in.ResponseAgent.Config)
	if !result.Success {
		return &result
	}

	if err := d.platform.Send(ctx, msg.AccountID, msg.ConversationID, result.Response, cred); err != nil {
		result.SendError = err.Error()
		d.log.Warn("Reply delivery failed", "agent_id", agent.ID, "conversation_id", msg.ConversationID, "error", err)
		return &result
	}

	result.MessageSent = true
	return &result
}

// credentialFor resolves the messaging credential for one agent: the
// agent's own when present, else the inbox default.
func credentialFor(in *inbox.Inbox, agent *inbox.Agent) platform.Credential {
	if agent.Credential != nil && !agent.Credential.IsZero() {
		return *agent.Credential
	}

	return in.Credential
}
