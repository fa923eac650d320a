package routes

import (
	"github.com/google/wire"

	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/auth"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/chat"
	v1 "jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/v1"
)

var RouteProvider = wire.NewSet(
	handlers.HandlerProvider,

	auth.NewAuthRoute,
	chat.NewChatRoute,
	v1.NewV1Route,
)
