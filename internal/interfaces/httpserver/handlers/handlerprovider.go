package handlers

import (
	"github.com/google/wire"

	"jan-server/services/plm-chat-api/internal/infrastructure/openbom"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/handlers/authhandler"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/handlers/chathandler"
)

var HandlerProvider = wire.NewSet(
	chathandler.NewChatHandler,
	authhandler.NewAuthHandler,
	wire.Bind(new(authhandler.Authenticator), new(*openbom.Authenticator)),
)
