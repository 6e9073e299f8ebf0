package ai

import (
	"context"
	"fmt"
	"sync"
)

// BudgetChecker checks and records token usage against per-session budgets.
type BudgetChecker interface {
	// Check returns true if the session has budget remaining.
	Check(ctx context.Context, sessionID string) (bool, error)
	// Record records token usage for a session.
	Record(ctx context.Context, sessionID string, tokens int) error
	// Usage returns current usage and the limit for a session.
	Usage(ctx context.Context, sessionID string) (used int64, budget int64, err error)
}

// InMemoryBudget is an in-process budget tracker. A limit of 0 means
// unlimited.
type InMemoryBudget struct {
	mu      sync.RWMutex
	limit   int64
	budgets map[string]int64 // session -> override limit
	usage   map[string]int64 // session -> tokens used
}

// NewInMemoryBudget creates a tracker that applies limit to every session.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit:   limit,
		budgets: make(map[string]int64),
		usage:   make(map[string]int64),
	}
}

// SetBudget overrides the token budget for one session.
func (b *InMemoryBudget) SetBudget(sessionID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[sessionID] = tokens
}

func (b *InMemoryBudget) Check(_ context.Context, sessionID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	budget := b.limitFor(sessionID)
	if budget <= 0 {
		return true, nil
	}
	return b.usage[sessionID] < budget, nil
}

func (b *InMemoryBudget) Record(_ context.Context, sessionID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[sessionID] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, sessionID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[sessionID], b.limitFor(sessionID), nil
}

// limitFor must be called with b.mu held.
func (b *InMemoryBudget) limitFor(sessionID string) int64 {
	if v, ok := b.budgets[sessionID]; ok {
		return v
	}
	return b.limit
}
