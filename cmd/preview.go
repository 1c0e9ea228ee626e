/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/logger"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/pipeline"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/provider"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/store/postgres"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/ui/plan"
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview <inbox-id>",
	Short: "Show the execution plan for an inbox",
	Long:  "Loads an inbox configuration and prints which agents would run in each pipeline stage, without invoking anything.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inboxID := args[0]

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

		store, err := postgres.Open(cfg.Database.URL)
		if err != nil {
			fmt.Printf("failed to open config store: %v\n", err)
			return
		}
		defer store.Close()

		client, _, err := platformClient(cfg, slog.Default())
		if err != nil {
			fmt.Printf("failed to configure platform: %v\n", err)
			return
		}

		generator, err := provider.New(cfg)
		if err != nil {
			fmt.Printf("failed to initialize provider: %v\n", err)
			return
		}

		orchestrator := pipeline.New(store, client, generator, cfg.Pipeline, slog.Default())

		executionPlan, err := orchestrator.Preview(context.Background(), inboxID)
		if err != nil {
			fmt.Printf("failed to build execution plan: %v\n", err)
			return
		}

		fmt.Print(plan.Render(executionPlan))
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
