package chat

import (
	"context"
	"net/http"
	"strings"

	"github.com/feelps04/html-css-tutor-virtual/internal/agent"
	"github.com/feelps04/html-css-tutor-virtual/internal/feedback"
)

type startSessionRequest struct {
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

type sessionResponse struct {
	SessionID    string `json:"sessionId"`
	CurrentTopic string `json:"currentTopic"`
	CurrentMode  string `json:"currentMode"`
}

type chatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"sessionId"`
	CurrentTopic string `json:"currentTopic"`
	CurrentMode  string `json:"currentMode"`
}

type chatResponse struct {
	Response            string  `json:"response"`
	SessionID           string  `json:"sessionId"`
	IsExercise          bool    `json:"isExercise"`
	CurrentTopic        string  `json:"currentTopic"`
	CurrentMode         string  `json:"currentMode"`
	NextTopicSuggestion *string `json:"nextTopicSuggestion"`
}

type topicResponse struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Next        *string `json:"next"`
}

type feedbackRequest struct {
	MessageID    messageID `json:"messageId"`
	FeedbackType string    `json:"feedbackType"`
	MessageText  string    `json:"messageText"`
	SessionID    string    `json:"sessionId"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type evaluationRequest struct {
	SessionID string `json:"sessionId"`
	IsCorrect bool   `json:"isCorrect"`
}

type evaluationResponse struct {
	Status string      `json:"status"`
	Scores agent.Score `json:"scores"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, true)
	if err != nil {
		writeError(w, err, "")
		return
	}
	var req startSessionRequest
	if err := decode(s.schemas.startSession, body, &req); err != nil {
		writeError(w, err, "")
		return
	}

	sess, err := s.engine.StartSession(r.Context(), req.UserName, req.UserEmail)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:    sess.ID,
		CurrentTopic: sess.TopicID,
		CurrentMode:  string(sess.Mode),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, false)
	if err != nil {
		writeError(w, err, "")
		return
	}
	status, payload := s.chat(r.Context(), body)
	writeJSON(w, status, payload)
}

// chat runs one chat request body and returns the status and the response
// or error payload. It is shared by POST /chat and the WebSocket channel.
func (s *Server) chat(ctx context.Context, body []byte) (int, any) {
	var req chatRequest
	if err := decode(s.schemas.chat, body, &req); err != nil {
		return classify(err, "")
	}

	reply, err := s.engine.Chat(ctx, agent.ChatRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		Mode:      req.CurrentMode,
		TopicID:   req.CurrentTopic,
	})
	if err != nil {
		return classify(err, req.SessionID)
	}

	resp := chatResponse{
		Response:     reply.Response,
		SessionID:    reply.SessionID,
		IsExercise:   reply.IsExercise,
		CurrentTopic: reply.TopicID,
		CurrentMode:  string(reply.Mode),
	}
	if reply.NextTopic != nil {
		name := reply.NextTopic.Name
		resp.NextTopicSuggestion = &name
	}
	return http.StatusOK, resp
}

func (s *Server) handleTopics(w http.ResponseWriter, _ *http.Request) {
	topics := s.engine.Catalog().All()
	out := make(map[string]topicResponse, len(topics))
	for _, t := range topics {
		tr := topicResponse{Name: t.Name, Description: t.Description}
		if t.HasNext() {
			next := t.Next
			tr.Next = &next
		}
		out[t.ID] = tr
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSuggestedQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string][]string{
		"questions": s.engine.SuggestedQuestions(q.Get("mode"), q.Get("topic")),
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, false)
	if err != nil {
		writeError(w, err, "")
		return
	}
	var req feedbackRequest
	if err := decode(s.schemas.feedback, body, &req); err != nil {
		writeError(w, err, "")
		return
	}

	rec := feedback.Record{
		SessionID:    req.SessionID,
		MessageID:    string(req.MessageID),
		FeedbackType: req.FeedbackType,
		MessageText:  req.MessageText,
	}
	if err := s.feedback.Record(r.Context(), rec); err != nil {
		logFailure(req.SessionID, http.StatusInternalServerError, err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: msgFeedbackFailed})
		return
	}

	if req.SessionID != "" {
		s.engine.LogEvent(req.SessionID, agent.EventFeedbackRecorded, map[string]any{
			"message_id": rec.MessageID,
			"feedback":   rec.FeedbackType,
		})
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: msgFeedbackOK})
}

func (s *Server) handleExerciseEvaluation(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, false)
	if err != nil {
		writeError(w, err, "")
		return
	}
	var req evaluationRequest
	if err := decode(s.schemas.evaluation, body, &req); err != nil {
		writeError(w, err, "")
		return
	}

	score, err := s.engine.RecordExerciseResult(r.Context(), req.SessionID, req.IsCorrect)
	if err != nil {
		writeError(w, err, req.SessionID)
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponse{Status: "success", Scores: score})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	writeJSON(w, http.StatusOK, s.engine.Score(id))
}
