package inbox

import (
	"context"
	"errors"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
)

// ErrNotFound is returned by a Store when no inbox exists for the given id.
var ErrNotFound = errors.New("inbox not found")

// GenerationSettings are an agent's default model/generation parameters.
type GenerationSettings struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Agent is a reusable prompt/configuration unit. The pipeline only reads it.
type Agent struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Type       string               `json:"type"`
	Prompt     string               `json:"prompt"`
	Context    string               `json:"context,omitempty"`
	Settings   GenerationSettings   `json:"settings"`
	Credential *platform.Credential `json:"credential,omitempty"`
}

// InvocationConfig holds per-assignment overrides merged over agent defaults.
// Pointer fields distinguish "unset" from an explicit zero override.
type InvocationConfig struct {
	Model                string   `json:"model,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
	MaxTokens            *int     `json:"max_tokens,omitempty"`
	ResponseDelaySeconds int      `json:"response_delay_seconds,omitempty"`
}

// Assignment is one entry of an inbox's ordered pipeline agent list.
type Assignment struct {
	Agent    *Agent           `json:"agent"`
	Active   bool             `json:"active"`
	Priority int              `json:"priority"`
	Config   InvocationConfig `json:"config"`
}

// ResponseAssignment binds the single designated response agent to an inbox.
//
// An agent referenced here must never also appear in Agents; that invariant
// is enforced at assignment time by the dashboard layer, and the pipeline
// relies on it.
type ResponseAssignment struct {
	Agent  *Agent           `json:"agent"`
	Config InvocationConfig `json:"config"`
}

// Inbox is a messaging-platform channel under pipeline control.
type Inbox struct {
	ID            string              `json:"id"`
	AccountID     string              `json:"account_id"`
	Active        bool                `json:"active"`
	Credential    platform.Credential `json:"credential"`
	ResponseAgent *ResponseAssignment `json:"response_agent,omitempty"`
	Agents        []Assignment        `json:"agents"`
}

// Store loads pipeline configuration with agent references resolved.
//
// Implementations return ErrNotFound (possibly wrapped) when the inbox
// does not exist.
type Store interface {
	LoadPipelineConfig(ctx context.Context, inboxID string) (*Inbox, error)
}
