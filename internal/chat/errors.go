package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/feelps04/html-css-tutor-virtual/internal/agent"
	"github.com/feelps04/html-css-tutor-virtual/internal/ai"
)

const (
	msgEmptyMessage    = "Mensagem do usuário não fornecida."
	msgSessionNotFound = "Sessão não encontrada. Inicie uma nova sessão."
	msgChatDisabled    = "Serviço de IA não configurado ou inicializado. Verifique sua API Key e logs do backend."
	msgBudgetExceeded  = "Limite de uso da sessão atingido. Inicie uma nova sessão."
	msgUnavailable     = "Serviço de IA indisponível no momento. Tente novamente mais tarde."
	msgInternal        = "Erro interno do servidor."
	msgFeedbackOK      = "Feedback registrado!"
	msgFeedbackFailed  = "Erro ao registrar feedback no servidor."
	blockedReplyFormat = "Sua pergunta foi bloqueada por razões de segurança: %s. Por favor, tente reformular."
)

// errorBody is the JSON shape of every failed request. Status is only set
// on WebSocket frames, where there is no HTTP status line.
type errorBody struct {
	Status      int    `json:"status,omitempty"`
	Error       string `json:"error"`
	Response    string `json:"response,omitempty"`
	BlockReason string `json:"blockReason,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

// classify maps an error to an HTTP status and a response body.
func classify(err error, sessionID string) (int, errorBody) {
	body := errorBody{SessionID: sessionID}

	var (
		invalid     *validationError
		blocked     *ai.ErrBlocked
		notFound    *ai.ErrModelNotFound
		unavailable *ai.ErrProviderUnavailable
	)
	switch {
	case errors.As(err, &invalid):
		body.Error = invalid.msg
		return http.StatusBadRequest, body
	case errors.Is(err, agent.ErrEmptyMessage):
		body.Error = msgEmptyMessage
		return http.StatusBadRequest, body
	case errors.Is(err, agent.ErrSessionNotFound):
		body.Error = msgSessionNotFound
		return http.StatusBadRequest, body
	case errors.Is(err, agent.ErrInvalidParameter):
		body.Error = "Parâmetro inválido: " + err.Error()
		return http.StatusBadRequest, body
	case errors.As(err, &blocked):
		reason := blocked.Reason
		if reason == "" {
			reason = "Desconhecido"
		}
		body.Error = "Conteúdo bloqueado pela política de segurança do provedor."
		body.BlockReason = reason
		body.Response = fmt.Sprintf(blockedReplyFormat, reason)
		return http.StatusBadRequest, body
	case errors.Is(err, ai.ErrBudgetExceeded):
		body.Error = msgBudgetExceeded
		return http.StatusTooManyRequests, body
	case errors.Is(err, agent.ErrChatDisabled):
		body.Error = msgChatDisabled
		return http.StatusInternalServerError, body
	case errors.As(err, &notFound):
		body.Error = fmt.Sprintf("Modelo de IA não encontrado: %s", notFound.Model)
		return http.StatusInternalServerError, body
	case errors.As(err, &unavailable):
		body.Error = msgUnavailable
		return http.StatusInternalServerError, body
	default:
		body.Error = msgInternal
		return http.StatusInternalServerError, body
	}
}

func writeError(w http.ResponseWriter, err error, sessionID string) {
	status, body := classify(err, sessionID)
	if status >= http.StatusInternalServerError {
		logFailure(sessionID, status, err)
	}
	writeJSON(w, status, body)
}

func logFailure(sessionID string, status int, err error) {
	slog.Error("request failed", "session_id", sessionID, "status", status, "error", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
