package chat

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/handlers/chathandler"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/middlewares"
	chatrequests "jan-server/services/plm-chat-api/internal/interfaces/httpserver/requests/chat"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/responses"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

type ChatRoute struct {
	chatHandler *chathandler.ChatHandler
	validate    *validator.Validate
}

func NewChatRoute(chatHandler *chathandler.ChatHandler) *ChatRoute {
	return &ChatRoute{
		chatHandler: chatHandler,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (r *ChatRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/chat", r.PostChat)
	router.POST("/clear", r.PostClear)
}

// PostChat answers one chat message in the caller's session.
func (r *ChatRoute) PostChat(reqCtx *gin.Context) {
	var request chatrequests.ChatRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "0e6b3d9a-7c1f-4a2e-b8d5-3f9c1a6e2b74")
		return
	}
	request.Content = strings.TrimSpace(request.Content)
	if err := r.validate.Struct(request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "content is required and must be at most 8000 characters", "5a8d2f4c-1e3b-4c7a-9f6d-0b2e8a4c1d93")
		return
	}

	sessionID := middlewares.SessionIDFromContext(reqCtx)
	result, err := r.chatHandler.Chat(reqCtx.Request.Context(), sessionID, request.Content)
	if err != nil {
		responses.HandleError(reqCtx, err, "")
		return
	}
	reqCtx.JSON(http.StatusOK, result)
}

// PostClear empties the caller's conversation history.
func (r *ChatRoute) PostClear(reqCtx *gin.Context) {
	reqCtx.JSON(http.StatusOK, r.chatHandler.Clear(middlewares.SessionIDFromContext(reqCtx)))
}
