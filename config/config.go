package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LLMProvider    string // openai, anthropic, ollama
	OpenAIKey      string
	AnthropicKey   string // API key (X-Api-Key header)
	AnthropicToken string // OAuth token (Authorization: Bearer header)
	LLMModel       string
	OllamaBaseURL  string

	LLMTimeout       time.Duration
	ToolTimeout      time.Duration
	MaxContextTokens int
	ContextListLimit int
	Persona          string // persona id, or "auto"

	DatabasePath string
	Port         int
	Timezone     string
	LogLevel     string

	DiscordToken    string
	DiscordWebhook  string
	CheckInCron     string
	CheckInUserID   string
	StreakSweepCron string
}

// Load reads .env (if present) and the environment, then validates the
// result.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if no .env

	cfg := &Config{
		LLMProvider:     envOr("LLM_PROVIDER", "openai"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken:  os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		LLMModel:        os.Getenv("LLM_MODEL"),
		OllamaBaseURL:   envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		Persona:         envOr("PERSONA", "app-builder"),
		DatabasePath:    envOr("DATABASE_PATH", "./data.db"),
		Timezone:        os.Getenv("TIMEZONE"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		DiscordToken:    os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook:  os.Getenv("DISCORD_WEBHOOK_URL"),
		CheckInCron:     envOr("CHECK_IN_CRON", "0 9 * * *"),
		CheckInUserID:   os.Getenv("CHECK_IN_USER_ID"),
		StreakSweepCron: envOr("STREAK_SWEEP_CRON", "5 0 * * *"),
	}

	var err error
	if cfg.LLMTimeout, err = envDuration("LLM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ToolTimeout, err = envDuration("TOOL_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxContextTokens, err = envInt("MAX_CONTEXT_TOKENS", 8000); err != nil {
		return nil, err
	}
	if cfg.ContextListLimit, err = envInt("CONTEXT_LIST_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.Port, err = envInt("PORT", 8080); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that do not depend on which subcommand runs.
// Provider credentials are checked separately by RequireProvider.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case "openai", "anthropic", "ollama":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be openai, anthropic or ollama, got %q", c.LLMProvider))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if c.ToolTimeout <= 0 {
		errs = append(errs, errors.New("TOOL_TIMEOUT must be positive"))
	}
	if c.MaxContextTokens < 1000 {
		errs = append(errs, fmt.Errorf("MAX_CONTEXT_TOKENS must be at least 1000, got %d", c.MaxContextTokens))
	}
	if c.ContextListLimit < 1 {
		errs = append(errs, fmt.Errorf("CONTEXT_LIST_LIMIT must be at least 1, got %d", c.ContextListLimit))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RequireProvider reports a missing credential for the selected provider.
// Ollama needs none.
func (c *Config) RequireProvider() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "anthropic":
		if c.AnthropicKey == "" && c.AnthropicToken == "" {
			return errors.New("ANTHROPIC_API_KEY or ANTHROPIC_AUTH_TOKEN is required when LLM_PROVIDER=anthropic")
		}
	}
	return nil
}

// Location returns the configured calendar. Empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}
