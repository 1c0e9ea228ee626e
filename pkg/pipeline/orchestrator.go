package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/bus"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/provider"
)

// Orchestrator is the pipeline entry point. One Run executes the four
// stages in fixed order — pre-process, response, main, post-process — and
// aggregates every agent outcome into one PipelineResult.
type Orchestrator struct {
	store           inbox.Store
	builder         *ContextBuilder
	invoker         *Invoker
	dispatcher      *Dispatcher
	log             *slog.Logger
	mainConcurrency int
}

// New wires the pipeline components. mainConcurrency (from config) caps
// main-stage fan-out; zero leaves it unbounded.
func New(store inbox.Store, client platform.Client, generator provider.Generator, cfg config.PipelineConfig, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}

	builder := NewContextBuilder(client, cfg.HistoryLimit, log)
	invoker := NewInvoker(generator, log)

	return &Orchestrator{
		store:           store,
		builder:         builder,
		invoker:         invoker,
		dispatcher:      NewDispatcher(invoker, builder, client, log),
		log:             log.With("component", "pipeline.orchestrator"),
		mainConcurrency: cfg.MainConcurrency,
	}
}

// Run executes the pipeline for one inbound message. The only error return
// is a ConfigError raised before any agent runs; every per-agent fault is
// captured inside the result.
func (o *Orchestrator) Run(ctx context.Context, inboxID string, msg bus.InboundMessage) (*PipelineResult, error) {
	in, err := o.load(ctx, inboxID)
	if err != nil {
		return nil, err
	}

	plan := Classify(in)
	o.log.Info("Pipeline run started",
		"inbox_id", inboxID,
		"conversation_id", msg.ConversationID,
		"pre_process", len(plan.PreProcess),
		"main", len(plan.Main),
		"post_process", len(plan.PostProcess),
		"has_response_agent", plan.Response != nil,
	)

	var results []AgentResult

	// Stage 1: pre-process, sequential in classification order. A failing
	// agent does not prevent the next one from running.
	for _, assignment := range plan.PreProcess {
		results = append(results, o.invokeAssignment(ctx, in, assignment, msg))
	}

	// Stage 2: response generation and delivery.
	var responseResult *AgentResult
	if result := o.dispatcher.Run(ctx, in, msg); result != nil {
		responseResult = result
		results = append(results, *result)
	}

	// Stage 3: main, one concurrent batch. The stage completes when every
	// invocation has settled; completion order decides result order here.
	results = append(results, o.runMainStage(ctx, in, plan.Main, msg)...)

	// Stage 4: post-process, same sequential semantics as stage 1.
	for _, assignment := range plan.PostProcess {
		results = append(results, o.invokeAssignment(ctx, in, assignment, msg))
	}

	result := &PipelineResult{
		InboxID:     inboxID,
		Results:     results,
		TotalAgents: len(results),
	}
	for _, agentResult := range results {
		if agentResult.Success {
			result.SuccessfulAgents++
		}
	}
	if responseResult != nil {
		result.Summary.ResponseGenerated = responseResult.Success
		result.Summary.MessageSent = responseResult.MessageSent
	}

	o.log.Info("Pipeline run finished",
		"inbox_id", inboxID,
		"total_agents", result.TotalAgents,
		"successful_agents", result.SuccessfulAgents,
		"response_generated", result.Summary.ResponseGenerated,
		"message_sent", result.Summary.MessageSent,
	)

	return result, nil
}

// load fetches and guards the inbox configuration. Any failure here is the
// single fatal fault class of a run.
func (o *Orchestrator) load(ctx context.Context, inboxID string) (*inbox.Inbox, error) {
	in, err := o.store.LoadPipelineConfig(ctx, inboxID)
	if err != nil {
		if errors.Is(err, inbox.ErrNotFound) {
			return nil, &ConfigError{InboxID: inboxID, Err: ErrInboxNotFound}
		}
		return nil, &ConfigError{InboxID: inboxID, Err: err}
	}
	if !in.Active {
		return nil, &ConfigError{InboxID: inboxID, Err: ErrInboxInactive}
	}

	return in, nil
}

// runMainStage launches all main-bucket invocations together and waits for
// every one of them to settle. Individual failures are tolerated; the group
// never short-circuits.
func (o *Orchestrator) runMainStage(ctx context.Context, in *inbox.Inbox, assignments []inbox.Assignment, msg bus.InboundMessage) []AgentResult {
	if len(assignments) == 0 {
		return nil
	}

	var mu sync.Mutex
	results := make([]AgentResult, 0, len(assignments))

	group, groupCtx := errgroup.WithContext(ctx)
	if o.mainConcurrency > 0 {
		group.SetLimit(o.mainConcurrency)
	}

	for _, assignment := range assignments {
		group.Go(func() error {
			result := o.invokeAssignment(groupCtx, in, assignment, msg)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	// Goroutines only ever return nil; Wait is the join point.
	_ = group.Wait()

	return results
}

// invokeAssignment builds the per-invocation context and runs one agent.
func (o *Orchestrator) invokeAssignment(ctx context.Context, in *inbox.Inbox, assignment inbox.Assignment, msg bus.InboundMessage) AgentResult {
	cred := credentialFor(in, assignment.Agent)
	invocation := o.builder.Build(ctx, msg, cred)

	return o.invoker.Invoke(ctx, assignment.Agent, invocation, assignment.Config)
}
