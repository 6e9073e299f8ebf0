package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/feelps04/html-css-tutor-virtual/internal/platform/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		AI: config.AIConfig{
			Provider:  config.ProviderGoogle,
			MaxTokens: 256,
			Timeout:   5 * time.Second,
		},
		Session:  config.SessionConfig{CleanupInterval: time.Minute},
		Feedback: config.FeedbackConfig{LogPath: filepath.Join(t.TempDir(), "feedback.log")},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"*"}},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantDebug bool
		wantInfo  bool
		wantJSON  bool
	}{
		{"default", config.LogConfig{Format: "json"}, false, true, true},
		{"debug text", config.LogConfig{Level: "DEBUG", Format: "text"}, true, true, false},
		{"warn", config.LogConfig{Level: "warn", Format: "json"}, false, false, true},
		{"error", config.LogConfig{Level: "error", Format: "json"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(tt.cfg, &buf)

			ctx := context.Background()
			if got := logger.Enabled(ctx, -4); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(ctx, 0); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}

			logger.Error("tutor call failed", "session_id", "s-1")
			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			if isJSON != tt.wantJSON {
				t.Errorf("output %q json = %v, want %v", buf.String(), isJSON, tt.wantJSON)
			}
		})
	}
}

func TestWriteTimeout(t *testing.T) {
	tests := []struct {
		name string
		ai   time.Duration
		want time.Duration
	}{
		{"default", 60 * time.Second, 90 * time.Second},
		{"no tutor deadline", 0, 0},
		{"negative", -time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := writeTimeout(tt.ai); got != tt.want {
				t.Errorf("writeTimeout(%s) = %s, want %s", tt.ai, got, tt.want)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name string
		ai   config.AIConfig
	}{
		{"google", config.AIConfig{Provider: config.ProviderGoogle, Google: config.GoogleConfig{APIKey: "AIza-test", Model: "gemini-2.0-flash"}}},
		{"openai", config.AIConfig{Provider: config.ProviderOpenAI, OpenAI: config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: "http://localhost:1/v1"}}},
		{"deepseek", config.AIConfig{Provider: config.ProviderDeepSeek, DeepSeek: config.DeepSeekConfig{APIKey: "sk-test", Model: "deepseek-chat"}}},
		{"openrouter", config.AIConfig{Provider: config.ProviderOpenRouter, OpenRouter: config.OpenRouterConfig{APIKey: "sk-test", Model: "x/y"}}},
		{"ollama", config.AIConfig{Provider: config.ProviderOllama, Ollama: config.OllamaConfig{Enabled: true, URL: "http://localhost:11434/v1", Model: "llama3.2"}}},
		{"anthropic", config.AIConfig{Provider: config.ProviderAnthropic, Anthropic: config.AnthropicConfig{APIKey: "sk-ant-test", Model: "claude-haiku-4-5"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newProvider(context.Background(), tt.ai)
			if err != nil {
				t.Fatalf("newProvider() error = %v", err)
			}
			if p == nil {
				t.Fatal("newProvider() returned nil")
			}
		})
	}

	if _, err := newProvider(context.Background(), config.AIConfig{Provider: "bard"}); err == nil {
		t.Error("newProvider() should reject an unknown provider")
	}
}

func TestSetup_WithoutProvider(t *testing.T) {
	a, err := setup(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer a.close()

	tests := []struct {
		method, path, body string
		wantStatus         int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/get-learning-topics", "", http.StatusOK},
		{http.MethodPost, "/chat", `{"message":"oi","sessionId":"x"}`, http.StatusInternalServerError},
		{http.MethodPost, "/feedback", `{"messageId":1,"feedbackType":"like","messageText":"ok"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			a.handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestSetup_InMemoryBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Google.APIKey = "AIza-test"
	cfg.AI.SessionTokenBudget = 1000

	a, err := setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer a.close()

	budget, err := newBudget(context.Background(), cfg, &app{}, nil)
	if err != nil || budget == nil {
		t.Errorf("newBudget() = %v, %v; want in-memory budget", budget, err)
	}
}

func TestSetup_BadCurriculum(t *testing.T) {
	cfg := testConfig(t)
	cfg.CurriculumPath = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := setup(context.Background(), cfg); err == nil {
		t.Error("setup() should fail for a missing curriculum file")
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
