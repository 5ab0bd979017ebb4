package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/clubforge/clubchat/internal/typing"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server ServerConfig `yaml:"server"`
	AI     AIConfig     `yaml:"ai"`
	Redis  RedisConfig  `yaml:"redis"`
	Typing TypingConfig `yaml:"typing"`
	Chat   ChatConfig   `yaml:"chat"`
}

// Load reads the optional yaml file, then lets environment variables
// override it. An empty path means environment only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if _, err := cfg.Server.Addr(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port" env:"PORT" env-default:"8080"`
}

// Addr normalizes the port setting into a listen address. Both "8080"
// and ":8080" or "127.0.0.1:8080" are accepted.
func (c ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	return ":" + port, nil
}

// AIConfig selects and configures the reply backend.
type AIConfig struct {
	// Provider is one of ark, openai, scripted.
	Provider     string       `yaml:"provider" env:"AI_PROVIDER" env-default:"scripted"`
	HistoryLimit int          `yaml:"history_limit" env:"AI_HISTORY_LIMIT" env-default:"10"`
	Ark          ArkConfig    `yaml:"ark"`
	OpenAI       OpenAIConfig `yaml:"openai"`
}

// ArkConfig holds the Ark model credentials and tuning.
type ArkConfig struct {
	APIKey      string  `yaml:"api_key" env:"ARK_API_KEY"`
	AccessKey   string  `yaml:"access_key" env:"ARK_ACCESS_KEY"`
	SecretKey   string  `yaml:"secret_key" env:"ARK_SECRET_KEY"`
	Model       string  `yaml:"model" env:"ARK_MODEL"`
	BaseURL     string  `yaml:"base_url" env:"ARK_BASE_URL" env-default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string  `yaml:"region" env:"ARK_REGION" env-default:"cn-beijing"`
	Temperature float32 `yaml:"temperature" env:"ARK_TEMPERATURE" env-default:"0.7"`
	MaxTokens   int     `yaml:"max_tokens" env:"ARK_MAX_TOKENS"`
}

// Enabled reports whether the required credentials are present.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the Ark chat model from this configuration.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: set ARK_API_KEY (or AK/SK pair) and ARK_MODEL")
	}

	temperature := c.Temperature
	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		Temperature: &temperature,
	}
	if c.MaxTokens > 0 {
		maxTokens := c.MaxTokens
		cfg.MaxTokens = &maxTokens
	}

	return ark.NewChatModel(ctx, cfg)
}

// OpenAIConfig holds OpenAI-compatible endpoint settings.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model       string  `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	BaseURL     string  `yaml:"base_url" env:"OPENAI_BASE_URL"`
	Temperature float32 `yaml:"temperature" env:"OPENAI_TEMPERATURE" env-default:"0.7"`
	TokenBudget int     `yaml:"token_budget" env:"OPENAI_TOKEN_BUDGET" env-default:"4000"`
}

func (c OpenAIConfig) Enabled() bool { return c.APIKey != "" }

// RedisConfig enables the redis transcript store when an endpoint is set.
type RedisConfig struct {
	Endpoint string `yaml:"endpoint" env:"REDIS_ENDPOINT"`
}

func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Endpoint) != "" }

// TypingConfig tunes the reveal pacing.
type TypingConfig struct {
	// Mode is natural or constant.
	Mode             string `yaml:"mode" env:"TYPING_MODE" env-default:"natural"`
	BaseDelayMs      int    `yaml:"base_delay_ms" env:"TYPING_BASE_DELAY_MS" env-default:"30"`
	ThinkingMs       int    `yaml:"thinking_ms" env:"TYPING_THINKING_MS" env-default:"1200"`
	GraceMs          int    `yaml:"grace_ms" env:"TYPING_GRACE_MS" env-default:"300"`
	CursorIntervalMs int    `yaml:"cursor_interval_ms" env:"TYPING_CURSOR_INTERVAL_MS" env-default:"530"`
}

// EngineOptions materializes the typing engine configuration.
func (c TypingConfig) EngineOptions() typing.Options {
	base := time.Duration(c.BaseDelayMs) * time.Millisecond
	if base <= 0 {
		base = typing.DefaultBaseDelay
	}

	var policy typing.DelayPolicy = typing.NaturalPolicy{Base: base, Rand: typing.SystemRand()}
	if strings.EqualFold(c.Mode, "constant") {
		policy = typing.ConstantPolicy{Base: base}
	}

	return typing.Options{
		Policy:         policy,
		Thinking:       time.Duration(c.ThinkingMs) * time.Millisecond,
		Grace:          time.Duration(c.GraceMs) * time.Millisecond,
		CursorInterval: time.Duration(c.CursorIntervalMs) * time.Millisecond,
	}
}

// ChatConfig tunes the conversation surface.
type ChatConfig struct {
	Apology string `yaml:"apology" env:"CHAT_APOLOGY"`
}
