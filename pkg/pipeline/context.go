package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/bus"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
	providertypes "github.com/DiscipleTools/agent-ai-sub003/pkg/provider/types"
)

const defaultHistoryLimit = 20

// Context is the per-invocation input assembled for one agent: the inbound
// message, the credential resolved for the agent, and bounded conversation
// history.
type Context struct {
	Message    bus.InboundMessage
	Credential platform.Credential
	History    []platform.Turn
}

// conversation converts the invocation context into the generator's shape.
func (c Context) conversation(agentContext string) providertypes.Conversation {
	return providertypes.Conversation{
		Message:        c.Message.Content,
		ConversationID: c.Message.ConversationID,
		AccountID:      c.Message.AccountID,
		AgentContext:   agentContext,
		History:        c.History,
	}
}

// ContextBuilder assembles invocation contexts, fetching prior turns from
// the messaging platform.
type ContextBuilder struct {
	platform     platform.Client
	historyLimit int
	log          *slog.Logger
}

// NewContextBuilder constructs a builder. historyLimit bounds how many of
// the most recent turns are kept; zero or negative applies the default.
func NewContextBuilder(client platform.Client, historyLimit int, log *slog.Logger) *ContextBuilder {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	if log == nil {
		log = slog.Default()
	}

	return &ContextBuilder{
		platform:     client,
		historyLimit: historyLimit,
		log:          log.With("component", "pipeline.context_builder"),
	}
}

// Build assembles the context for one invocation. History is fetched only
// when the message carries a conversation id; a fetch failure degrades to an
// empty history rather than aborting the invocation.
func (b *ContextBuilder) Build(ctx context.Context, msg bus.InboundMessage, cred platform.Credential) Context {
	invocation := Context{Message: msg, Credential: cred}

	conversationID := strings.TrimSpace(msg.ConversationID)
	if conversationID == "" {
		return invocation
	}

	turns, err := b.platform.FetchHistory(ctx, msg.AccountID, conversationID, cred)
	if err != nil {
		b.log.Warn("History fetch failed, continuing with empty history",
			"conversation_id", conversationID, "error", err)
		return invocation
	}

	invocation.History = b.trimHistory(turns, msg)
	return invocation
}

// trimHistory drops the current inbound message (matched by id and by exact
// content) and keeps the most recent turns up to the configured limit.
func (b *ContextBuilder) trimHistory(turns []platform.Turn, msg bus.InboundMessage) []platform.Turn {
	kept := make([]platform.Turn, 0, len(turns))
	for _, turn := range turns {
		if msg.MessageID != "" && turn.ID == msg.MessageID {
			continue
		}
		if turn.Content == msg.Content {
			continue
		}
		kept = append(kept, turn)
	}

	if len(kept) > b.historyLimit {
		kept = kept[len(kept)-b.historyLimit:]
	}
	if len(kept) == 0 {
		return nil
	}

	return kept
}
