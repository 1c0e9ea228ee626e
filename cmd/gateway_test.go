package cmd

import (
	"testing"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
)

func TestPlatformClientRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Platform.Kind = "carrier-pigeon"

	if _, _, err := platformClient(cfg, nil); err == nil {
		t.Fatal("expected error for unknown platform kind")
	}
}

func TestPlatformClientTelegramRequiresToken(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Platform.Kind = "telegram"

	if _, _, err := platformClient(cfg, nil); err == nil {
		t.Fatal("expected error for telegram without token")
	}
}

func TestPlatformClientChatwootRequiresBaseURL(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Platform.Kind = "chatwoot"

	if _, _, err := platformClient(cfg, nil); err == nil {
		t.Fatal("expected error for chatwoot without base_url")
	}
}
