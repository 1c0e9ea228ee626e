package types

import "github.com/DiscipleTools/agent-ai-sub003/pkg/platform"

// Options are the merged generation parameters for one invocation: the
// per-assignment stage config laid over the agent's defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Conversation is the message context handed to the generator alongside the
// agent's prompt instruction.
type Conversation struct {
	Message        string
	ConversationID string
	AccountID      string
	AgentContext   string
	History        []platform.Turn
}
