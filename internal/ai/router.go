package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Router dispatches requests to the active provider. It never falls back to
// another provider: a failed call is returned to the caller as is.
type Router struct {
	providers map[string]Provider
	active    string
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the router. The first registered provider
// becomes active.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	if r.active == "" {
		r.active = name
	}
}

// Use makes a registered provider active.
func (r *Router) Use(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("provider %q is not registered", name)
	}
	r.active = name
	return nil
}

// Active returns the name of the active provider.
func (r *Router) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Complete sends the request to the active provider.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	name := r.active
	provider := r.providers[name]
	r.mu.RUnlock()

	if provider == nil {
		return CompletionResponse{}, &ErrProviderUnavailable{Err: errors.New("no AI provider registered")}
	}

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		slog.Warn("AI provider failed", "provider", name, "error", err)
		return CompletionResponse{}, fmt.Errorf("%s: %w", name, err)
	}

	slog.Debug("AI request completed",
		"provider", name,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
	return resp, nil
}

// HealthCheck checks the active provider when it supports health checks.
func (r *Router) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	provider := r.providers[r.active]
	r.mu.RUnlock()

	if provider == nil {
		return errors.New("no AI provider registered")
	}
	if hc, ok := provider.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}
