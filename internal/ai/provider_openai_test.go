package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestOpenAIServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL + "/v1"
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	url := newTestOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("OpenAI response", "stop"))
	})

	provider := NewOpenAIProvider("test-key", WithBaseURL(url))
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "Você é um tutor."},
			{Role: RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "OpenAI response" {
		t.Errorf("Content = %q, want %q", resp.Content, "OpenAI response")
	}
	if resp.TotalTokens() != 15 {
		t.Errorf("TotalTokens() = %d, want 15", resp.TotalTokens())
	}
	if body.Model != defaultOpenAIModel {
		t.Errorf("model = %q, want %q", body.Model, defaultOpenAIModel)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
		t.Errorf("messages = %+v, want system then user", body.Messages)
	}
}

func TestOpenAIProvider_Complete_ContentFilter(t *testing.T) {
	url := newTestOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("", "content_filter"))
	})

	_, err := NewOpenAIProvider("test-key", WithBaseURL(url)).Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	var blocked *ErrBlocked
	if !errors.As(err, &blocked) {
		t.Fatalf("Complete() error = %v, want *ErrBlocked", err)
	}
	if blocked.Reason != "content_filter" {
		t.Errorf("Reason = %q, want content_filter", blocked.Reason)
	}
}

func TestOpenAIProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		check  func(error) bool
	}{
		{"model not found", http.StatusNotFound, "model_not_found", func(err error) bool { var e *ErrModelNotFound; return errors.As(err, &e) }},
		{"server error", http.StatusInternalServerError, "server_error", func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
		{"rate limit", http.StatusTooManyRequests, "rate_limit_exceeded", func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			url := newTestOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "failure", "type": "error", "code": tt.code},
				})
			})

			_, err := NewOpenAIProvider("test-key", WithBaseURL(url)).Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: RoleUser, Content: "hello"}},
			})
			if !tt.check(err) {
				t.Errorf("Complete() error = %v (%T)", err, err)
			}
			if calls != 1 {
				t.Errorf("server called %d times, want 1 (no retries)", calls)
			}
		})
	}
}

func TestOpenAIProvider_Complete_EmptyChoices(t *testing.T) {
	url := newTestOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := NewOpenAIProvider("test-key", WithBaseURL(url)).Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	var unavailable *ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("Complete() error = %v, want *ErrProviderUnavailable", err)
	}
}

func TestCompatibleProviders(t *testing.T) {
	var gotModel, gotReferer string
	url := newTestOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		gotReferer = r.Header.Get("HTTP-Referer")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("ok", "stop"))
	})

	tests := []struct {
		name        string
		provider    *OpenAIProvider
		wantModel   string
		wantReferer string
	}{
		{"deepseek", NewDeepSeekProvider("k", WithBaseURL(url)), "deepseek-chat", ""},
		{"openrouter", NewOpenRouterProvider("k", WithBaseURL(url), WithModel("google/gemini-2.0-flash-001")), "google/gemini-2.0-flash-001", openRouterReferer},
		{"ollama", NewOllamaProvider(url, WithModel("llama3.2")), "llama3.2", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.provider.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", tt.provider.Name(), tt.name)
			}
			if _, err := tt.provider.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			}); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if gotModel != tt.wantModel {
				t.Errorf("model = %q, want %q", gotModel, tt.wantModel)
			}
			if gotReferer != tt.wantReferer {
				t.Errorf("HTTP-Referer = %q, want %q", gotReferer, tt.wantReferer)
			}
		})
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	url := newTestOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	})

	if err := NewOpenAIProvider("test-key", WithBaseURL(url)).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
