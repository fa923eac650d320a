package chathandler

import (
	"context"

	"github.com/rs/zerolog"

	"jan-server/services/plm-chat-api/internal/domain/dialogue"
	chatresponses "jan-server/services/plm-chat-api/internal/interfaces/httpserver/responses/chat"
	"jan-server/services/plm-chat-api/internal/utils/redact"
)

// ChatHandler routes chat messages to the session that owns them.
type ChatHandler struct {
	sessions *dialogue.SessionManager
	redactor *redact.Redactor
	log      zerolog.Logger
}

func NewChatHandler(sessions *dialogue.SessionManager, redactor *redact.Redactor, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{sessions: sessions, redactor: redactor, log: log}
}

func (h *ChatHandler) Chat(ctx context.Context, sessionID, content string) (*chatresponses.ChatResponse, error) {
	reply, err := h.sessions.Handle(ctx, sessionID, content)
	if err != nil {
		return nil, err
	}
	h.log.Debug().
		Str("session", h.redactor.Identifier(sessionID)).
		Str("source", string(reply.Source)).
		Str("intent", string(reply.Intent)).
		Msg("chat reply sent")
	return &chatresponses.ChatResponse{
		Response:  reply.Text,
		Source:    string(reply.Source),
		SessionID: sessionID,
	}, nil
}

func (h *ChatHandler) Clear(sessionID string) chatresponses.ClearResponse {
	h.sessions.Clear(sessionID)
	return chatresponses.NewClearResponse()
}
