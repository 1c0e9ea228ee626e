package pipeline

import (
	"sort"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
)

// Bucket is the execution stage a pipeline assignment is classified into,
// derived from its integer priority.
type Bucket int

const (
	BucketPreProcess Bucket = iota
	BucketMain
	BucketPostProcess
)

// Priority thresholds for bucket classification.
const (
	mainPriorityFloor        = 100
	postProcessPriorityFloor = 200
)

func (b Bucket) String() string {
	switch b {
	case BucketPreProcess:
		return "pre-process"
	case BucketMain:
		return "main"
	case BucketPostProcess:
		return "post-process"
	default:
		return "unknown"
	}
}

// BucketForPriority maps an assignment priority to its stage bucket.
func BucketForPriority(priority int) Bucket {
	switch {
	case priority < mainPriorityFloor:
		return BucketPreProcess
	case priority < postProcessPriorityFloor:
		return BucketMain
	default:
		return BucketPostProcess
	}
}

// Plan is the classified view of one inbox's agent configuration.
//
// PreProcess and PostProcess are in execution order (ascending priority,
// insertion order on ties). Main keeps insertion order: its entries are
// dispatched as one concurrent batch, so priority only determines
// membership there.
type Plan struct {
	Response    *inbox.ResponseAssignment
	PreProcess  []inbox.Assignment
	Main        []inbox.Assignment
	PostProcess []inbox.Assignment
}

// Classify routes an inbox's configured agents into stage buckets, dropping
// inactive entries. Pure function; used by both the live run and the
// read-only preview.
func Classify(in *inbox.Inbox) Plan {
	plan := Plan{Response: in.ResponseAgent}

	for _, assignment := range in.Agents {
		if !assignment.Active || assignment.Agent == nil {
			continue
		}

		switch BucketForPriority(assignment.Priority) {
		case BucketPreProcess:
			plan.PreProcess = append(plan.PreProcess, assignment)
		case BucketMain:
			plan.Main = append(plan.Main, assignment)
		case BucketPostProcess:
			plan.PostProcess = append(plan.PostProcess, assignment)
		}
	}

	sortByPriority(plan.PreProcess)
	sortByPriority(plan.PostProcess)

	return plan
}

// sortByPriority orders assignments ascending by priority, keeping original
// array order on ties.
func sortByPriority(assignments []inbox.Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].Priority < assignments[j].Priority
	})
}
