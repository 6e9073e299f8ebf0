package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/feelps04/html-css-tutor-virtual/internal/curriculum"
)

var (
	// ErrInvalidParameter is returned for an unknown mode or topic.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmptyMessage is returned when a chat message is blank.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrChatDisabled is returned when no AI provider is configured.
	ErrChatDisabled = errors.New("chat is disabled: no AI provider configured")
)

// EngineConfig holds dependencies for the agent engine.
type EngineConfig struct {
	Catalog *curriculum.Catalog
	Store   SessionStore
	Tutor   *Tutor // nil disables chat
	Events  EventLogger
}

// Engine runs the tutoring operations on top of the session store.
type Engine struct {
	catalog *curriculum.Catalog
	store   SessionStore
	tutor   *Tutor
	events  EventLogger
}

// ChatRequest is one learner message. Empty Mode or TopicID keep the
// session's current values.
type ChatRequest struct {
	SessionID string
	Message   string
	Mode      string
	TopicID   string
}

// ChatReply is the tutor's answer plus the session state it was given in.
type ChatReply struct {
	Response   string
	SessionID  string
	IsExercise bool
	Mode       Mode
	TopicID    string
	NextTopic  *curriculum.Topic
}

// NewEngine creates a new agent engine.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore(0, 0)
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		catalog: cfg.Catalog,
		store:   store,
		tutor:   cfg.Tutor,
		events:  events,
	}
}

// Catalog returns the topic catalog.
func (e *Engine) Catalog() *curriculum.Catalog {
	return e.catalog
}

// ChatEnabled reports whether an AI provider is configured.
func (e *Engine) ChatEnabled() bool {
	return e.tutor != nil
}

// StartSession creates a session in beginner mode on the first topic.
func (e *Engine) StartSession(_ context.Context, userName, userEmail string) (Session, error) {
	sess, err := e.store.Create(Session{
		UserName:  strings.TrimSpace(userName),
		UserEmail: strings.TrimSpace(userEmail),
		Mode:      ModeBeginner,
		TopicID:   e.catalog.First().ID,
	})
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}

	fp := Fingerprint(sess.UserEmail)
	slog.Info("session started",
		"session_id", sess.ID,
		"user_name", sess.UserName,
		"email_fp", fp,
	)
	e.LogEvent(sess.ID, EventSessionStarted, map[string]any{
		"user_name": sess.UserName,
		"email_fp":  fp,
		"topic":     sess.TopicID,
		"mode":      string(sess.Mode),
	})
	return sess, nil
}

// Session returns a snapshot of a session.
func (e *Engine) Session(id string) (Session, error) {
	return e.store.Get(id)
}

// SetModeAndTopic switches the session's mode and/or topic. Any change
// clears the history; identical values leave it untouched.
func (e *Engine) SetModeAndTopic(ctx context.Context, id, mode, topicID string) (Session, error) {
	var changed bool
	sess, err := e.store.Update(ctx, id, func(s *Session) error {
		var err error
		changed, err = e.applyModeAndTopic(s, mode, topicID)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	if changed {
		e.logTopicChange(sess)
	}
	return sess, nil
}

// Chat sends a learner message to the tutor and records the exchange. The
// user turn and the tutor turn are committed together, and only when the
// provider call succeeds.
func (e *Engine) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatReply{}, ErrEmptyMessage
	}
	if !e.ChatEnabled() {
		return ChatReply{}, ErrChatDisabled
	}

	var (
		reply   Reply
		changed bool
		next    *curriculum.Topic
	)
	sess, err := e.store.Update(ctx, req.SessionID, func(s *Session) error {
		var err error
		if changed, err = e.applyModeAndTopic(s, req.Mode, req.TopicID); err != nil {
			return err
		}

		topic, _ := e.catalog.Topic(s.TopicID)
		next = nil
		if n, ok := e.catalog.Next(topic.ID); ok {
			next = &n
		}

		reply, err = e.tutor.Ask(ctx, s.ID, BuildInstruction(s.Mode, topic, next), s.History, message)
		if err != nil {
			return err
		}

		now := time.Now()
		s.History = append(s.History,
			Turn{Role: RoleUser, Text: message, CreatedAt: now},
			Turn{Role: RoleAssistant, Text: reply.Text, CreatedAt: now},
		)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrInvalidParameter) {
			slog.Error("chat failed", "session_id", req.SessionID, "error", err)
			e.LogEvent(req.SessionID, EventChatFailed, map[string]any{"error": err.Error()})
		}
		return ChatReply{}, err
	}

	if changed {
		e.logTopicChange(sess)
	}
	slog.Info("chat completed",
		"session_id", sess.ID,
		"topic", sess.TopicID,
		"mode", sess.Mode,
		"model", reply.Model,
		"is_exercise", reply.IsExercise,
	)
	e.LogEvent(sess.ID, EventChatCompleted, map[string]any{
		"topic":       sess.TopicID,
		"mode":        string(sess.Mode),
		"model":       reply.Model,
		"tokens":      reply.Tokens,
		"is_exercise": reply.IsExercise,
		"turns":       len(sess.History),
	})

	return ChatReply{
		Response:   reply.Text,
		SessionID:  sess.ID,
		IsExercise: reply.IsExercise,
		Mode:       sess.Mode,
		TopicID:    sess.TopicID,
		NextTopic:  next,
	}, nil
}

// RecordExerciseResult adds one evaluated exercise to the score.
func (e *Engine) RecordExerciseResult(ctx context.Context, id string, correct bool) (Score, error) {
	sess, err := e.store.Update(ctx, id, func(s *Session) error {
		s.Score.Total++
		if correct {
			s.Score.Correct++
		}
		return nil
	})
	if err != nil {
		return Score{}, err
	}

	e.LogEvent(id, EventExerciseEvaluated, map[string]any{
		"correct": correct,
		"score":   sess.Score.Correct,
		"total":   sess.Score.Total,
	})
	return sess.Score, nil
}

// Score returns the session's tally, or zeros for an unknown session.
func (e *Engine) Score(id string) Score {
	sess, err := e.store.Get(id)
	if err != nil {
		return Score{}
	}
	return sess.Score
}

// SuggestedQuestions returns starter questions for a mode and topic.
// Unknown values fall back to beginner mode and a generic topic name.
func (e *Engine) SuggestedQuestions(mode, topicID string) []string {
	m, ok := ParseMode(mode)
	if !ok {
		m = ModeBeginner
	}
	var name string
	if topic, ok := e.catalog.Topic(topicID); ok {
		name = topic.Name
	}
	return SuggestedQuestions(m, name)
}

// applyModeAndTopic validates and applies a mode/topic switch. Empty values
// keep the current setting. It reports whether anything changed.
func (e *Engine) applyModeAndTopic(s *Session, mode, topicID string) (bool, error) {
	newMode := s.Mode
	if strings.TrimSpace(mode) != "" {
		m, ok := ParseMode(mode)
		if !ok {
			return false, fmt.Errorf("%w: unknown mode %q", ErrInvalidParameter, mode)
		}
		newMode = m
	}

	newTopic := s.TopicID
	if topicID = strings.TrimSpace(topicID); topicID != "" {
		if _, ok := e.catalog.Topic(topicID); !ok {
			return false, fmt.Errorf("%w: unknown topic %q", ErrInvalidParameter, topicID)
		}
		newTopic = topicID
	}

	if newMode == s.Mode && newTopic == s.TopicID {
		return false, nil
	}
	s.Mode = newMode
	s.TopicID = newTopic
	s.History = []Turn{}
	return true, nil
}

func (e *Engine) logTopicChange(sess Session) {
	slog.Info("session mode or topic changed, history cleared",
		"session_id", sess.ID,
		"topic", sess.TopicID,
		"mode", sess.Mode,
	)
	e.LogEvent(sess.ID, EventTopicChanged, map[string]any{
		"topic": sess.TopicID,
		"mode":  string(sess.Mode),
	})
}

// LogEvent records an analytics event. Failures are logged, never returned.
func (e *Engine) LogEvent(sessionID, eventType string, data map[string]any) {
	if err := e.events.LogEvent(Event{
		SessionID: sessionID,
		EventType: eventType,
		Data:      data,
	}); err != nil {
		slog.Warn("failed to log event", "type", eventType, "session_id", sessionID, "error", err)
	}
}
