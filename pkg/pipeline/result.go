package pipeline

import "time"

// AgentResult is the outcome of one agent invocation. Exactly one is
// produced per invocation; failure is represented here, never as a
// propagated error.
type AgentResult struct {
	AgentID   string        `json:"agent_id"`
	AgentName string        `json:"agent_name"`
	AgentType string        `json:"agent_type"`
	Success   bool          `json:"success"`
	Response  string        `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Delivery outcome, populated only for the response stage. A delivery
	// failure does not flip Success; generation and delivery are tracked
	// independently.
	MessageSent bool   `json:"message_sent,omitempty"`
	SendError   string `json:"send_error,omitempty"`
}

// Summary condenses the response stage outcome of one run.
type Summary struct {
	ResponseGenerated bool `json:"response_generated"`
	MessageSent       bool `json:"message_sent"`
}

// PipelineResult aggregates one full run. Results are ordered by stage:
// pre-process, response, main, post-process.
type PipelineResult struct {
	InboxID          string        `json:"inbox_id"`
	Results          []AgentResult `json:"results"`
	TotalAgents      int           `json:"total_agents"`
	SuccessfulAgents int           `json:"successful_agents"`
	Summary          Summary       `json:"summary"`
}
