package authhandler

import (
	"context"

	authresponses "jan-server/services/plm-chat-api/internal/interfaces/httpserver/responses/auth"
)

// Authenticator exchanges OpenBOM user credentials for an access token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Login(ctx context.Context, username, password string) (*authresponses.LoginResponse, error) {
	if err := h.auth.Login(ctx, username, password); err != nil {
		return nil, err
	}
	return &authresponses.LoginResponse{Status: "authenticated"}, nil
}

// Logout drops the OpenBOM session; chat is refused until the next login.
func (h *AuthHandler) Logout(ctx context.Context) (*authresponses.LoginResponse, error) {
	if err := h.auth.Logout(ctx); err != nil {
		return nil, err
	}
	return &authresponses.LoginResponse{Status: "logged_out"}, nil
}
