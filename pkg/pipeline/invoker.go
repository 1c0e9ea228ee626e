package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/provider"
	providertypes "github.com/DiscipleTools/agent-ai-sub003/pkg/provider/types"
)

// Invoker runs one agent against one invocation context. It owns per-agent
// timing, pacing delay, and error capture: Invoke always returns exactly one
// AgentResult and never propagates a generation failure.
type Invoker struct {
	generator provider.Generator
	log       *slog.Logger

	// Injectable for tests that assert measured delay without real sleeps.
	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

func NewInvoker(generator provider.Generator, log *slog.Logger) *Invoker {
	if log == nil {
		log = slog.Default()
	}

	return &Invoker{
		generator: generator,
		log:       log.With("component", "pipeline.invoker"),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Invoke merges the stage config over the agent defaults, calls the
// generator, and enforces the configured pacing delay. Duration is measured
// from call start to return and is always at least the configured delay.
func (v *Invoker) Invoke(ctx context.Context, agent *inbox.Agent, invocation Context, cfg inbox.InvocationConfig) AgentResult {
	startedAt := v.now()
	result := AgentResult{
		AgentID:   agent.ID,
		AgentName: agent.Name,
		AgentType: agent.Type,
		StartedAt: startedAt,
	}

	opts := mergeOptions(agent.Settings, cfg)
	text, err := v.generator.Generate(ctx, agent.Prompt, invocation.conversation(agent.Context), opts)
	if err != nil {
		result.Error = err.Error()
		v.log.Warn("Agent invocation failed", "agent_id", agent.ID, "agent_name", agent.Name, "error", err)
	} else {
		result.Success = true
		result.Response = text
	}

	if delay := time.Duration(cfg.ResponseDelaySeconds) * time.Second; delay > 0 {
		if remaining := delay - v.now().Sub(startedAt); remaining > 0 {
			v.sleep(ctx, remaining)
		}
	}

	result.Duration = v.now().Sub(startedAt)
	v.log.Debug("Agent invocation finished",
		"agent_id", agent.ID,
		"agent_name", agent.Name,
		"success", result.Success,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result
}

// mergeOptions lays per-assignment overrides over agent defaults; stage
// config wins for overlapping keys.
func mergeOptions(defaults inbox.GenerationSettings, cfg inbox.InvocationConfig) providertypes.Options {
	opts := providertypes.Options{
		Model:       defaults.Model,
		Temperature: defaults.Temperature,
		MaxTokens:   defaults.MaxTokens,
	}

	if cfg.Model != "" {
		opts.Model = cfg.Model
	}
	if cfg.Temperature != nil {
		opts.Temperature = *cfg.Temperature
	}
	if cfg.MaxTokens != nil {
		opts.MaxTokens = *cfg.MaxTokens
	}

	return opts
}

// sleepContext waits out the pacing delay but returns early on cancellation.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
