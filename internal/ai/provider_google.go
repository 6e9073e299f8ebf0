package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GoogleProvider implements Provider for Google Gemini using the genai SDK.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*genai.ClientConfig, *GoogleProvider)

// WithGoogleBaseURL sets the API base URL (for testing).
func WithGoogleBaseURL(url string) GoogleOption {
	return func(cfg *genai.ClientConfig, _ *GoogleProvider) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(cfg *genai.ClientConfig, _ *GoogleProvider) {
		cfg.HTTPClient = client
	}
}

// WithGoogleModel sets the default model.
func WithGoogleModel(model string) GoogleOption {
	return func(_ *genai.ClientConfig, p *GoogleProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// NewGoogleProvider creates a new Google Gemini provider.
func NewGoogleProvider(ctx context.Context, apiKey string, opts ...GoogleOption) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	p := &GoogleProvider{model: defaultGeminiModel}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg, p)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	p.client = client
	return p, nil
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	system, conversation := splitSystem(req.Messages)

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	result, err := p.client.Models.GenerateContent(ctx, model, buildGeminiContents(conversation), config)
	if err != nil {
		return CompletionResponse{}, mapGeminiError(model, err)
	}

	if reason := geminiBlockReason(result); reason != "" {
		return CompletionResponse{}, &ErrBlocked{Reason: reason}
	}

	resp := CompletionResponse{
		Content: result.Text(),
		Model:   model,
	}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

// HealthCheck verifies the configured model is reachable.
func (p *GoogleProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return mapGeminiError(p.model, err)
	}
	return nil
}

func buildGeminiContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out[i] = &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		}
	}
	return out
}

// geminiBlockReason reports why Gemini refused the prompt or the answer.
// It returns "" when the response was not blocked.
func geminiBlockReason(result *genai.GenerateContentResponse) string {
	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return string(fb.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return ""
	}
	switch reason := result.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII:
		return string(reason)
	}
	return ""
}

func mapGeminiError(model string, err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}

	if code == http.StatusNotFound {
		return &ErrModelNotFound{Model: model, Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
