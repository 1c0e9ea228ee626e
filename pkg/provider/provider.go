package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	provideropenai "github.com/DiscipleTools/agent-ai-sub003/pkg/provider/openai"
	providertypes "github.com/DiscipleTools/agent-ai-sub003/pkg/provider/types"
)

// Generator is the AI-generation collaborator. It may fail; callers capture
// the failure as data.
type Generator interface {
	Generate(ctx context.Context, prompt string, conv providertypes.Conversation, opts providertypes.Options) (string, error)
}

// New resolves the configured generation client.
func New(cfg *config.Config) (Generator, error) {
	providerID := cfg.Providers.Default
	if providerID == "" {
		providerID = "openai"
	}

	slog.Default().With("component", "provider.factory").Debug("Resolving generation client", "provider", providerID)

	switch providerID {
	case "openai":
		return provideropenai.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
