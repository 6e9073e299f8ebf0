package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGoogleProvider(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGoogleProvider(context.Background(), "test-key", WithGoogleBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogleProvider() error = %v", err)
	}
	return p
}

func writeGemini(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestNewGoogleProvider_EmptyKey(t *testing.T) {
	if _, err := NewGoogleProvider(context.Background(), ""); err == nil {
		t.Fatal("NewGoogleProvider() should return error for empty key")
	}
}

func TestGoogleProvider_Complete(t *testing.T) {
	var body map[string]any

	p := newTestGoogleProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing or wrong API key header")
		}
		json.NewDecoder(r.Body).Decode(&body)

		writeGemini(w, http.StatusOK, map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "Resposta do Gemini"}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     8,
				"candidatesTokenCount": 12,
				"totalTokenCount":      20,
			},
		})
	})

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "Você é um tutor."},
			{Role: RoleUser, Content: "O que é HTML?"},
			{Role: RoleAssistant, Content: "Uma linguagem de marcação."},
			{Role: RoleUser, Content: "E CSS?"},
		},
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Resposta do Gemini" {
		t.Errorf("Content = %q, want %q", resp.Content, "Resposta do Gemini")
	}
	if resp.InputTokens != 8 || resp.OutputTokens != 12 {
		t.Errorf("tokens = %d/%d, want 8/12", resp.InputTokens, resp.OutputTokens)
	}

	contents, _ := body["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("contents = %d entries, want 3 (system message excluded)", len(contents))
	}
	roles := []string{"user", "model", "user"}
	for i, c := range contents {
		if got := c.(map[string]any)["role"]; got != roles[i] {
			t.Errorf("contents[%d].role = %v, want %s", i, got, roles[i])
		}
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("systemInstruction missing from request")
	}
}

func TestGoogleProvider_Complete_Blocked(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{
			name: "prompt feedback",
			body: map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}},
			want: "SAFETY",
		},
		{
			name: "candidate finish reason",
			body: map[string]any{"candidates": []map[string]any{{"finishReason": "PROHIBITED_CONTENT"}}},
			want: "PROHIBITED_CONTENT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestGoogleProvider(t, func(w http.ResponseWriter, r *http.Request) {
				writeGemini(w, http.StatusOK, tt.body)
			})

			_, err := p.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: RoleUser, Content: "algo perigoso"}},
			})
			var blocked *ErrBlocked
			if !errors.As(err, &blocked) {
				t.Fatalf("Complete() error = %v, want *ErrBlocked", err)
			}
			if blocked.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", blocked.Reason, tt.want)
			}
		})
	}
}

func TestGoogleProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, func(err error) bool { var e *ErrModelNotFound; return errors.As(err, &e) }},
		{"server error", http.StatusInternalServerError, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
		{"bad key", http.StatusBadRequest, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestGoogleProvider(t, func(w http.ResponseWriter, r *http.Request) {
				writeGemini(w, tt.status, map[string]any{
					"error": map[string]any{"code": tt.status, "message": "failure", "status": "ERROR"},
				})
			})

			_, err := p.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: RoleUser, Content: "oi"}},
			})
			if !tt.check(err) {
				t.Errorf("Complete() error = %v (%T)", err, err)
			}
		})
	}
}
