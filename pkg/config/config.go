package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envConfigPath        = "AGENTAI_CONFIG"
	envDatabaseURL       = "AGENTAI_DATABASE_URL"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Platform  PlatformConfig  `json:"platform"`
	Providers ProvidersConfig `json:"providers"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Gateway   GatewayConfig   `json:"gateway"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// DatabaseConfig configures the inbox/agent configuration store.
type DatabaseConfig struct {
	URL string `json:"url"`
}

// PlatformConfig selects and configures the messaging-platform client.
type PlatformConfig struct {
	Kind     string         `json:"kind"`
	Chatwoot ChatwootConfig `json:"chatwoot"`
	Telegram TelegramConfig `json:"telegram"`
}

// ChatwootConfig configures the Chatwoot REST platform client.
type ChatwootConfig struct {
	BaseURL               string `json:"base_url"`
	TokenEnv              string `json:"token_env"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// TelegramConfig configures the Telegram platform client and, when enabled,
// the inbound long-polling listener bound to one inbox.
type TelegramConfig struct {
	Enabled      bool     `json:"enabled"`
	Token        string   `json:"token"`
	AllowFrom    []string `json:"allow_from"`
	InboxID      string   `json:"inbox_id"`
	AccountID    string   `json:"account_id"`
	HistoryDepth int      `json:"history_depth"`
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	Default string               `json:"default"`
	OpenAI  OpenAIProviderConfig `json:"openai"`
}

// OpenAIProviderConfig configures the OpenAI generation client.
type OpenAIProviderConfig struct {
	APIKeyEnv             string `json:"api_key_env"`
	BaseURL               string `json:"base_url"`
	Organization          string `json:"organization"`
	Project               string `json:"project"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// PipelineConfig holds pipeline execution tuning.
//
// HistoryLimit bounds how many prior turns feed one invocation context.
// MainConcurrency caps main-stage fan-out; zero means unbounded.
type PipelineConfig struct {
	HistoryLimit    int    `json:"history_limit"`
	MainConcurrency int    `json:"main_concurrency"`
	DefaultModel    string `json:"default_model"`
}

// GatewayConfig configures webhook HTTP bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if url := strings.TrimSpace(os.Getenv(envDatabaseURL)); url != "" {
		cfg.Database.URL = url
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Platform.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Platform.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is AGENTAI_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
