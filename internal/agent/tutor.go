package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/feelps04/html-css-tutor-virtual/internal/ai"
)

// EmptyReplyFallback replaces blank completions.
const EmptyReplyFallback = "Desculpe, não consegui gerar uma resposta útil no momento. Poderia tentar reformular?"

// TutorConfig holds dependencies for the tutor gateway.
type TutorConfig struct {
	Provider  ai.Provider
	Budget    ai.BudgetChecker // optional
	MaxTokens int
	Timeout   time.Duration // 0 leaves the caller's deadline untouched
}

// Tutor sends prompts to the AI provider and turns completions into replies.
type Tutor struct {
	provider  ai.Provider
	budget    ai.BudgetChecker
	maxTokens int
	timeout   time.Duration
}

// Reply is a tutor answer.
type Reply struct {
	Text       string
	IsExercise bool
	Model      string
	Tokens     int
}

// NewTutor creates a tutor gateway.
func NewTutor(cfg TutorConfig) *Tutor {
	return &Tutor{
		provider:  cfg.Provider,
		budget:    cfg.Budget,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

// Ask sends instruction, history and the new user message to the provider.
// Provider failures are returned unchanged so callers can classify them with
// errors.As. Nothing is retried.
func (t *Tutor) Ask(ctx context.Context, sessionID, instruction string, history []Turn, userMessage string) (Reply, error) {
	if t.budget != nil {
		ok, err := t.budget.Check(ctx, sessionID)
		if err != nil {
			return Reply{}, fmt.Errorf("checking token budget: %w", err)
		}
		if !ok {
			return Reply{}, ai.ErrBudgetExceeded
		}
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: instruction})
	for _, turn := range history {
		role := ai.RoleUser
		if turn.Role == RoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: userMessage})

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	resp, err := t.provider.Complete(ctx, ai.CompletionRequest{
		Messages:  messages,
		MaxTokens: t.maxTokens,
	})
	if err != nil {
		return Reply{}, err
	}

	if t.budget != nil {
		if err := t.budget.Record(ctx, sessionID, resp.TotalTokens()); err != nil {
			slog.Warn("failed to record token usage", "session_id", sessionID, "error", err)
		}
	}

	text := resp.Content
	if strings.TrimSpace(text) == "" {
		slog.Warn("empty completion, using fallback reply", "session_id", sessionID, "model", resp.Model)
		text = EmptyReplyFallback
	}

	return Reply{
		Text:       text,
		IsExercise: IsExercise(text),
		Model:      resp.Model,
		Tokens:     resp.TotalTokens(),
	}, nil
}
