package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/handlers/authhandler"
	authrequests "jan-server/services/plm-chat-api/internal/interfaces/httpserver/requests/auth"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/responses"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

// AuthRoute handles OpenBOM login and logout
type AuthRoute struct {
	authHandler *authhandler.AuthHandler
	validate    *validator.Validate
}

func NewAuthRoute(authHandler *authhandler.AuthHandler) *AuthRoute {
	return &AuthRoute{
		authHandler: authHandler,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *AuthRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/auth/login", a.PostLogin)
	router.POST("/auth/logout", a.PostLogout)
}

// PostLogin signs the service in to OpenBOM with user credentials.
func (a *AuthRoute) PostLogin(reqCtx *gin.Context) {
	var request authrequests.LoginRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "c4e1a7b3-9d2f-4e6a-8b5c-2a7f0d3e9c16")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "username and password are required", "7f3b9e1d-4a6c-4d2b-a9e8-1c5f7b3d0a28")
		return
	}

	result, err := a.authHandler.Login(reqCtx.Request.Context(), request.Username, request.Password)
	if err != nil {
		responses.HandleError(reqCtx, err, "")
		return
	}
	reqCtx.JSON(http.StatusOK, result)
}

// PostLogout signs the service out of OpenBOM.
func (a *AuthRoute) PostLogout(reqCtx *gin.Context) {
	result, err := a.authHandler.Logout(reqCtx.Request.Context())
	if err != nil {
		responses.HandleError(reqCtx, err, "")
		return
	}
	reqCtx.JSON(http.StatusOK, result)
}
