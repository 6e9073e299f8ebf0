// Package chat exposes the tutor over HTTP and WebSocket.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/feelps04/html-css-tutor-virtual/internal/agent"
	"github.com/feelps04/html-css-tutor-virtual/internal/feedback"
)

// Banner is the plain-text body of GET /.
const Banner = "Backend do Tutor Virtual de Programação está rodando!"

const (
	maxBodyBytes = 1 << 20
	checkTimeout = 2 * time.Second
)

// Checker is a dependency checked by /readyz.
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// Config holds the server dependencies.
type Config struct {
	Engine         *agent.Engine
	Feedback       feedback.Sink
	AllowedOrigins []string
	Checks         []Checker
}

// Server handles the tutor HTTP API.
type Server struct {
	engine   *agent.Engine
	feedback feedback.Sink
	origins  []string
	checks   []Checker
	schemas  *schemas
}

// NewServer creates a server. It fails only if a request schema does not
// compile.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("chat server requires an engine")
	}
	if cfg.Feedback == nil {
		return nil, fmt.Errorf("chat server requires a feedback sink")
	}
	sc, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Server{
		engine:   cfg.Engine,
		feedback: cfg.Feedback,
		origins:  cfg.AllowedOrigins,
		checks:   cfg.Checks,
		schemas:  sc,
	}, nil
}

// Handler returns the routed handler wrapped in CORS, logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /start-session", s.handleStartSession)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /get-learning-topics", s.handleTopics)
	mux.HandleFunc("GET /suggested-questions", s.handleSuggestedQuestions)
	mux.HandleFunc("POST /feedback", s.handleFeedback)
	mux.HandleFunc("POST /exercise-evaluation", s.handleExerciseEvaluation)
	mux.HandleFunc("GET /get-scores", s.handleScores)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	return recoverer(logRequests(c.Handler(mux)))
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(Banner))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for _, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			slog.Warn("readiness check failed", "check", c.Name(), "error", err)
			failed[c.Name()] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the WebSocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// recoverer turns a handler panic into a 500 so one bad request never takes
// the process down.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("panic in handler", "method", r.Method, "path", r.URL.Path, "panic", v)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgInternal})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
