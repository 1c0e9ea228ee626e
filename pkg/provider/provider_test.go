package provider

import (
	"testing"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
)

func TestNewRejectsUnsupportedProvider(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Providers.Default = "carrier-pigeon"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewDefaultsToOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg := &config.Config{}
	generator, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if generator == nil {
		t.Fatal("expected a generator")
	}
}
