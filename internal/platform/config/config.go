// Package config loads application configuration from environment variables.
// All variables use the TUTOR_ prefix. A .env file in the working directory
// is read first when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	AI             AIConfig
	Session        SessionConfig
	Feedback       FeedbackConfig
	CORS           CORSConfig
	Log            LogConfig
	CurriculumPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty URL disables event persistence.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings.
// An empty URL keeps token budgets in process memory.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	Provider           string
	MaxTokens          int
	Timeout            time.Duration
	SessionTokenBudget int64

	Google     GoogleConfig
	OpenAI     OpenAIConfig
	DeepSeek   DeepSeekConfig
	OpenRouter OpenRouterConfig
	Anthropic  AnthropicConfig
	Ollama     OllamaConfig
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
	Model  string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig holds self-hosted Ollama settings. URL points at the
// OpenAI-compatible /v1 endpoint.
type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
}

// SessionConfig controls in-memory session retention.
type SessionConfig struct {
	TTL             time.Duration // 0 keeps sessions for the process lifetime
	CleanupInterval time.Duration
}

// FeedbackConfig holds the feedback log settings.
type FeedbackConfig struct {
	LogPath    string
	MaxSizeMB  int
	MaxBackups int
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Provider names accepted by TUTOR_AI_PROVIDER.
const (
	ProviderGoogle     = "google"
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderAnthropic  = "anthropic"
)

// Load reads configuration from environment variables with TUTOR_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}

	googleKey := envStr("TUTOR_AI_GOOGLE_API_KEY", "")
	if googleKey == "" {
		googleKey = envStr("GOOGLE_API_KEY", "")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TUTOR_SERVER_PORT", 5000),
			Host: envStr("TUTOR_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("TUTOR_DATABASE_URL", ""),
			MaxConns: envInt("TUTOR_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("TUTOR_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("TUTOR_CACHE_URL", ""),
		},
		AI: AIConfig{
			Provider:           strings.ToLower(envStr("TUTOR_AI_PROVIDER", ProviderGoogle)),
			MaxTokens:          envInt("TUTOR_AI_MAX_TOKENS", 2048),
			Timeout:            envDuration("TUTOR_AI_TIMEOUT", 60*time.Second),
			SessionTokenBudget: int64(envInt("TUTOR_AI_SESSION_TOKEN_BUDGET", 0)),
			Google: GoogleConfig{
				APIKey: googleKey,
				Model:  envStr("TUTOR_AI_GOOGLE_MODEL", "gemini-2.0-flash"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  envStr("TUTOR_AI_OPENAI_API_KEY", ""),
				Model:   envStr("TUTOR_AI_OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: envStr("TUTOR_AI_OPENAI_BASE_URL", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("TUTOR_AI_DEEPSEEK_API_KEY", ""),
				Model:  envStr("TUTOR_AI_DEEPSEEK_MODEL", "deepseek-chat"),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("TUTOR_AI_OPENROUTER_API_KEY", ""),
				Model:  envStr("TUTOR_AI_OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),
			},
			Anthropic: AnthropicConfig{
				APIKey: envStr("TUTOR_AI_ANTHROPIC_API_KEY", ""),
				Model:  envStr("TUTOR_AI_ANTHROPIC_MODEL", "claude-haiku-4-5"),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("TUTOR_AI_OLLAMA_ENABLED", false),
				URL:     envStr("TUTOR_AI_OLLAMA_URL", "http://localhost:11434/v1"),
				Model:   envStr("TUTOR_AI_OLLAMA_MODEL", "llama3.2"),
			},
		},
		Session: SessionConfig{
			TTL:             envDuration("TUTOR_SESSION_TTL", 0),
			CleanupInterval: envDuration("TUTOR_SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Feedback: FeedbackConfig{
			LogPath:    envStr("TUTOR_FEEDBACK_LOG_PATH", "feedback.log"),
			MaxSizeMB:  envInt("TUTOR_FEEDBACK_MAX_SIZE_MB", 100),
			MaxBackups: envInt("TUTOR_FEEDBACK_MAX_BACKUPS", 0),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("TUTOR_CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  envStr("TUTOR_LOG_LEVEL", "info"),
			Format: envStr("TUTOR_LOG_FORMAT", "json"),
		},
		CurriculumPath: envStr("TUTOR_CURRICULUM_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
// A missing AI credential is not an error: chat is disabled instead.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderGoogle, ProviderOpenAI, ProviderDeepSeek, ProviderOpenRouter, ProviderOllama, ProviderAnthropic:
	default:
		return fmt.Errorf("TUTOR_AI_PROVIDER must be one of google, openai, deepseek, openrouter, ollama, anthropic, got %q", c.AI.Provider)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("TUTOR_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("TUTOR_AI_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("TUTOR_AI_TIMEOUT must be positive, got %s", c.AI.Timeout)
	}
	if c.AI.SessionTokenBudget < 0 {
		return fmt.Errorf("TUTOR_AI_SESSION_TOKEN_BUDGET must not be negative, got %d", c.AI.SessionTokenBudget)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("TUTOR_SESSION_TTL must not be negative, got %s", c.Session.TTL)
	}
	if c.Feedback.LogPath == "" {
		return fmt.Errorf("TUTOR_FEEDBACK_LOG_PATH is required")
	}

	return nil
}

// HasAIProvider returns true if the selected AI provider has credentials.
func (c *Config) HasAIProvider() bool {
	switch c.AI.Provider {
	case ProviderGoogle:
		return c.AI.Google.APIKey != ""
	case ProviderOpenAI:
		return c.AI.OpenAI.APIKey != ""
	case ProviderDeepSeek:
		return c.AI.DeepSeek.APIKey != ""
	case ProviderOpenRouter:
		return c.AI.OpenRouter.APIKey != ""
	case ProviderAnthropic:
		return c.AI.Anthropic.APIKey != ""
	case ProviderOllama:
		return c.AI.Ollama.Enabled
	default:
		return false
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
