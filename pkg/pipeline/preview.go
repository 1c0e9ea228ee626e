package pipeline

import (
	"context"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
)

// PlanEntry identifies one agent in an execution plan.
type PlanEntry struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	AgentType string `json:"agent_type"`
	Priority  int    `json:"priority"`
}

// ExecutionPlan is the operator-facing "what will run" projection of one
// inbox's configuration. Nothing is invoked to produce it.
type ExecutionPlan struct {
	InboxID     string      `json:"inbox_id"`
	Response    *PlanEntry  `json:"response,omitempty"`
	PreProcess  []PlanEntry `json:"pre_process"`
	Main        []PlanEntry `json:"main"`
	PostProcess []PlanEntry `json:"post_process"`
}

// Preview loads the same configuration as Run and returns the classified
// agent lists without executing anything. Classification and ordering rules
// are identical to the live run; main is additionally sorted by priority so
// the display is deterministic.
func (o *Orchestrator) Preview(ctx context.Context, inboxID string) (*ExecutionPlan, error) {
	in, err := o.load(ctx, inboxID)
	if err != nil {
		return nil, err
	}

	plan := Classify(in)

	mainEntries := append([]inbox.Assignment(nil), plan.Main...)
	sortByPriority(mainEntries)

	executionPlan := &ExecutionPlan{
		InboxID:     inboxID,
		PreProcess:  planEntries(plan.PreProcess),
		Main:        planEntries(mainEntries),
		PostProcess: planEntries(plan.PostProcess),
	}
	if plan.Response != nil && plan.Response.Agent != nil {
		executionPlan.Response = &PlanEntry{
			AgentID:   plan.Response.Agent.ID,
			AgentName: plan.Response.Agent.Name,
			AgentType: plan.Response.Agent.Type,
		}
	}

	return executionPlan, nil
}

func planEntries(assignments []inbox.Assignment) []PlanEntry {
	if len(assignments) == 0 {
		return nil
	}

	entries := make([]PlanEntry, 0, len(assignments))
	for _, assignment := range assignments {
		entries = append(entries, PlanEntry{
			AgentID:   assignment.Agent.ID,
			AgentName: assignment.Agent.Name,
			AgentType: assignment.Agent.Type,
			Priority:  assignment.Priority,
		})
	}

	return entries
}
