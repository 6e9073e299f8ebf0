package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/feelps04/html-css-tutor-virtual/internal/agent"
	"github.com/feelps04/html-css-tutor-virtual/internal/ai"
	"github.com/feelps04/html-css-tutor-virtual/internal/chat"
	"github.com/feelps04/html-css-tutor-virtual/internal/curriculum"
	"github.com/feelps04/html-css-tutor-virtual/internal/feedback"
	"github.com/feelps04/html-css-tutor-virtual/internal/platform/cache"
	"github.com/feelps04/html-css-tutor-virtual/internal/platform/config"
	"github.com/feelps04/html-css-tutor-virtual/internal/platform/database"
)

// budgetTTL bounds Redis budget keys when sessions never expire.
const budgetTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// writeTimeout leaves room for the tutor call. A non-positive tutor
// timeout means no deadline, so responses are not cut either.
func writeTimeout(aiTimeout time.Duration) time.Duration {
	if aiTimeout <= 0 {
		return 0
	}
	return aiTimeout + 30*time.Second
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout(cfg.AI.Timeout),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// app is the wired server plus the resources to release on exit.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setup(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	catalog, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}

	var checks []chat.Checker

	var events agent.EventLogger = agent.NopEventLogger{}
	if cfg.Database.URL != "" {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks = append(checks, db)

		pg := agent.NewPostgresEventLogger(db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		events = pg
	} else {
		slog.Info("no database configured, analytics events disabled")
	}

	var tutor *agent.Tutor
	if cfg.HasAIProvider() {
		provider, err := newProvider(ctx, cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("creating %s provider: %w", cfg.AI.Provider, err)
		}
		router := ai.NewRouter()
		router.Register(cfg.AI.Provider, provider)

		budget, err := newBudget(ctx, cfg, a, &checks)
		if err != nil {
			return nil, err
		}

		tutor = agent.NewTutor(agent.TutorConfig{
			Provider:  router,
			Budget:    budget,
			MaxTokens: cfg.AI.MaxTokens,
			Timeout:   cfg.AI.Timeout,
		})
		slog.Info("AI provider configured", "provider", cfg.AI.Provider)
	} else {
		slog.Warn("no AI credentials for the selected provider, chat is disabled", "provider", cfg.AI.Provider)
	}

	engine := agent.NewEngine(agent.EngineConfig{
		Catalog: catalog,
		Store:   agent.NewMemoryStore(cfg.Session.TTL, cfg.Session.CleanupInterval),
		Tutor:   tutor,
		Events:  events,
	})

	sink := feedback.NewFileSink(feedback.FileSinkConfig{
		Path:       cfg.Feedback.LogPath,
		MaxSizeMB:  cfg.Feedback.MaxSizeMB,
		MaxBackups: cfg.Feedback.MaxBackups,
	})
	a.closers = append(a.closers, func() {
		if err := sink.Close(); err != nil {
			slog.Warn("closing feedback log", "error", err)
		}
	})

	srv, err := chat.NewServer(chat.Config{
		Engine:         engine,
		Feedback:       sink,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Checks:         checks,
	})
	if err != nil {
		return nil, err
	}
	a.handler = srv.Handler()
	return a, nil
}

// newProvider creates the client for the configured provider.
func newProvider(ctx context.Context, cfg config.AIConfig) (ai.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGoogle:
		return ai.NewGoogleProvider(ctx, cfg.Google.APIKey, ai.WithGoogleModel(cfg.Google.Model))
	case config.ProviderOpenAI:
		opts := []ai.OpenAIOption{ai.WithModel(cfg.OpenAI.Model)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return ai.NewOpenAIProvider(cfg.OpenAI.APIKey, opts...), nil
	case config.ProviderDeepSeek:
		return ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey, ai.WithModel(cfg.DeepSeek.Model)), nil
	case config.ProviderOpenRouter:
		return ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey, ai.WithModel(cfg.OpenRouter.Model)), nil
	case config.ProviderOllama:
		return ai.NewOllamaProvider(cfg.Ollama.URL, ai.WithModel(cfg.Ollama.Model)), nil
	case config.ProviderAnthropic:
		return ai.NewAnthropicProvider(cfg.Anthropic.APIKey, ai.WithAnthropicModel(cfg.Anthropic.Model))
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// newBudget returns nil when budgets are off. With a cache URL the counters
// live in Redis and are shared between instances.
func newBudget(ctx context.Context, cfg *config.Config, a *app, checks *[]chat.Checker) (ai.BudgetChecker, error) {
	limit := cfg.AI.SessionTokenBudget
	if limit <= 0 {
		if cfg.Cache.URL != "" {
			slog.Info("cache configured but session token budget is off, not connecting")
		}
		return nil, nil
	}
	if cfg.Cache.URL == "" {
		slog.Info("session token budget kept in memory", "limit", limit)
		return ai.NewInMemoryBudget(limit), nil
	}

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = c.Close() })
	*checks = append(*checks, c)

	ttl := cfg.Session.TTL
	if ttl <= 0 {
		ttl = budgetTTL
	}
	slog.Info("session token budget kept in redis", "limit", limit, "ttl", ttl)
	return ai.NewRedisBudget(c.Client, limit, ttl), nil
}
