package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/auth"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/chat"
)

type V1Route struct {
	chatRoute *chat.ChatRoute
	authRoute *auth.AuthRoute
}

func NewV1Route(chatRoute *chat.ChatRoute, authRoute *auth.AuthRoute) *V1Route {
	return &V1Route{chatRoute: chatRoute, authRoute: authRoute}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1 := router.Group("/v1")
	v1Route.chatRoute.RegisterRouter(v1)
	v1Route.authRoute.RegisterRouter(v1)
}
