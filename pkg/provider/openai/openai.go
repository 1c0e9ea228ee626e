package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	providertypes "github.com/DiscipleTools/agent-ai-sub003/pkg/provider/types"
)

// Generator produces replies through the OpenAI chat completions API.
type Generator struct {
	client         osdk.Client
	requestTimeout time.Duration
}

func New(cfg *config.Config) (*Generator, error) {
	providerCfg := cfg.Providers.OpenAI
	apiKey := resolveAPIKey(providerCfg)
	if apiKey == "" {
		return nil, errors.New("providers.openai.api_key_env is required or OPENAI_API_KEY must be set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(providerCfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if organization := strings.TrimSpace(providerCfg.Organization); organization != "" {
		opts = append(opts, option.WithOrganization(organization))
	}
	if project := strings.TrimSpace(providerCfg.Project); project != "" {
		opts = append(opts, option.WithProject(project))
	}

	requestTimeout := time.Duration(providerCfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(requestTimeout))
	}

	return &Generator{
		client:         osdk.NewClient(opts...),
		requestTimeout: requestTimeout,
	}, nil
}

// Generate sends the agent prompt plus conversation context and returns the
// reply text.
func (g *Generator) Generate(ctx context.Context, prompt string, conv providertypes.Conversation, opts providertypes.Options) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	log := generatorLogger().With("operation", "generate")
	startedAt := time.Now()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is required")
	}
	if strings.TrimSpace(conv.Message) == "" {
		return "", errors.New("message is required")
	}

	model, err := normalizeModel(opts.Model)
	if err != nil {
		log.Debug("generation request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return "", err
	}
	log.Debug("generation request started",
		"conversation_id", conv.ConversationID,
		"model", model,
		"history_turns", len(conv.History),
		"prompt_length", len(prompt),
	)

	params := osdk.ChatCompletionNewParams{
		Model:    model,
		Messages: buildMessages(prompt, conv),
	}
	if opts.Temperature > 0 {
		params.Temperature = osdk.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = osdk.Int(int64(opts.MaxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Debug("generation request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if len(completion.Choices) == 0 {
		log.Debug("generation request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no choices")
		return "", errors.New("generation succeeded but returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		log.Debug("generation request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no output text")
		return "", errors.New("generation succeeded but returned no text")
	}
	log.Debug("generation request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(text))

	return text, nil
}

// buildMessages lays out system instruction, prior turns, and the current
// inbound message in chat order.
func buildMessages(prompt string, conv providertypes.Conversation) []osdk.ChatCompletionMessageParamUnion {
	system := prompt
	if agentContext := strings.TrimSpace(conv.AgentContext); agentContext != "" {
		system = prompt + "\n\n" + agentContext
	}

	messages := make([]osdk.ChatCompletionMessageParamUnion, 0, len(conv.History)+2)
	messages = append(messages, osdk.SystemMessage(system))
	for _, turn := range conv.History {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if turn.Incoming {
			messages = append(messages, osdk.UserMessage(content))
			continue
		}
		messages = append(messages, osdk.AssistantMessage(content))
	}
	messages = append(messages, osdk.UserMessage(strings.TrimSpace(conv.Message)))

	return messages
}

func generatorLogger() *slog.Logger {
	return slog.Default().With("component", "provider.openai")
}

func (g *Generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, g.requestTimeout)
}

func resolveAPIKey(cfg config.OpenAIProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

// normalizeModel accepts either a bare model id or a provider-prefixed id
// such as "openai/gpt-5.2" and returns the bare id.
func normalizeModel(model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("model is required")
	}

	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 {
		return model, nil
	}

	providerID := strings.TrimSpace(parts[0])
	modelID := strings.TrimSpace(parts[1])
	if providerID == "" || modelID == "" {
		return "", errors.New("model is invalid")
	}
	if providerID != "openai" {
		return "", fmt.Errorf("model provider %q is not supported by openai provider", providerID)
	}

	return modelID, nil
}
