package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/feelps04/html-css-tutor-virtual/internal/agent"
)

const wsWriteTimeout = 10 * time.Second

// handleWebSocket serves a chat channel. Each text frame carries one /chat
// request object and is answered with one frame: the chat response, or an
// error object with a status field.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.engine.ChatEnabled() {
		writeError(w, agent.ErrChatDisabled, "")
		return
	}

	// The server's read and write timeouts would cut long-lived connections.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	slog.Debug("websocket connected", "remote", r.RemoteAddr)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				slog.Debug("websocket closed", "remote", r.RemoteAddr)
			default:
				if !errors.Is(err, context.Canceled) {
					slog.Warn("websocket read failed", "remote", r.RemoteAddr, "error", err)
				}
			}
			return
		}

		var status int
		var payload any
		if typ != websocket.MessageText {
			status, payload = classify(&validationError{msg: "Envie mensagens de texto em JSON."}, "")
		} else {
			status, payload = s.chat(ctx, data)
		}
		if body, ok := payload.(errorBody); ok {
			body.Status = status
			payload = body
		}

		writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		err = wsjson.Write(writeCtx, conn, payload)
		cancel()
		if err != nil {
			slog.Warn("websocket write failed", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

// acceptOptions maps the CORS origins onto the WebSocket origin check.
func (s *Server) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, origin := range s.origins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, u.Host)
		}
	}
	if len(s.origins) == 0 {
		opts.InsecureSkipVerify = true
	}
	return opts
}
