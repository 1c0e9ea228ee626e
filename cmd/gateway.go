package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/gateway"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/logger"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/pipeline"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform/chatwoot"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform/telegram"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/provider"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/store/postgres"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the pipeline gateway",
	Long:  "Runs AgentAI as a long-lived gateway: webhook endpoints, plan preview, health and readiness probes, and optional channel listeners.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.gateway")

		store, err := postgres.Open(cfg.Database.URL)
		if err != nil {
			log.Error("Failed to open config store", "error", err)
			return
		}
		defer store.Close()

		client, listeners, err := platformClient(cfg, log)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		generator, err := provider.New(cfg)
		if err != nil {
			log.Error("Failed to initialize provider", "error", err)
			return
		}

		orchestrator := pipeline.New(store, client, generator, cfg.Pipeline, slog.Default())

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := gateway.NewService(cfg, orchestrator, store, listeners, slog.Default())
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Gateway started", "platform", cfg.Platform.Kind, "provider", cfg.Providers.Default, "listeners", len(listeners))
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

// platformClient builds the messaging client for the configured platform.
// Telegram has no inbound webhook, so selecting it also yields a long-poll
// listener backed by the same client.
func platformClient(cfg *config.Config, log *slog.Logger) (platform.Client, []gateway.Listener, error) {
	switch cfg.Platform.Kind {
	case "", "chatwoot":
		client, err := chatwoot.New(cfg.Platform.Chatwoot, log)
		if err != nil {
			return nil, nil, fmt.Errorf("configure chatwoot platform: %w", err)
		}
		return client, nil, nil
	case "telegram":
		client, err := telegram.NewClient(cfg.Platform.Telegram, log)
		if err != nil {
			return nil, nil, fmt.Errorf("configure telegram platform: %w", err)
		}
		return client, []gateway.Listener{client}, nil
	default:
		return nil, nil, fmt.Errorf("unknown platform kind %q", cfg.Platform.Kind)
	}
}
