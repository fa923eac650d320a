package openbom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"resty.dev/v3"

	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/infrastructure/metrics"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

// ErrInvalidCredentials is returned by Login when OpenBOM rejects the user.
var ErrInvalidCredentials = errors.New("openbom: invalid credentials")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// Authenticator holds the OpenBOM app key and the current access token.
type Authenticator struct {
	http   *resty.Client
	appKey string

	mu          sync.RWMutex
	accessToken string
	now         func() time.Time
}

var _ plm.CredentialProvider = (*Authenticator)(nil)

func NewAuthenticator(httpClient *resty.Client, appKey, accessToken string) *Authenticator {
	return &Authenticator{
		http:        httpClient,
		appKey:      strings.TrimSpace(appKey),
		accessToken: strings.TrimSpace(accessToken),
		now:         time.Now,
	}
}

// IsAuthenticated reports whether both credentials are present and, when the
// access token is a JWT, whether it has not expired yet. The signature is
// not verified; OpenBOM does that on every call.
func (a *Authenticator) IsAuthenticated(ctx context.Context) bool {
	a.mu.RLock()
	token := a.accessToken
	a.mu.RUnlock()

	if a.appKey == "" || token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// opaque token
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(a.now())
}

func (a *Authenticator) Headers() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	headers := make(map[string]string, 2)
	if a.appKey != "" {
		headers[headerAppKey] = a.appKey
	}
	if a.accessToken != "" {
		headers[headerAccessToken] = a.accessToken
	}
	return headers
}

// Login exchanges username and password for an access token and keeps it
// for subsequent calls.
func (a *Authenticator) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		metrics.RecordAuth("rejected")
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			"username and password are required", nil, "b7d2e4f1-6a8c-4e3b-9d5f-2c1a0e7b8d94")
	}

	var body loginResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader(headerAppKey, a.appKey).
		SetBody(loginRequest{Username: username, Password: password}).
		SetResult(&body).
		Post("/login")
	if err != nil {
		metrics.RecordAuth("error")
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, fmt.Errorf("openbom login: %w", err), "openbom login failed")
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		metrics.RecordAuth("rejected")
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnauthorized,
			"openbom rejected the credentials", ErrInvalidCredentials, "4f9a1c3e-8b2d-4a6f-b1e5-7c0d3e9a2b68")
	}
	if resp.IsError() {
		metrics.RecordAuth("error")
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("openbom login returned %d", resp.StatusCode()), nil, "e3a5c7d9-2b4f-4d1e-8a6c-0f9b2d4e6a81",
			map[string]any{"status": resp.StatusCode()})
	}

	token := body.AccessToken
	if token == "" {
		token = body.Token
	}
	if strings.TrimSpace(token) == "" {
		metrics.RecordAuth("error")
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"openbom login response carried no token", nil, "1d6e8f0a-3c5b-4e7d-9a2f-6b8c0e1d3f57")
	}

	a.mu.Lock()
	a.accessToken = strings.TrimSpace(token)
	a.mu.Unlock()
	metrics.RecordAuth("success")
	return nil
}

// OpenBOM has served logout from both paths.
var logoutPaths = []string{"/auth/logout", "/api/auth/logout"}

// Logout invalidates the access token at OpenBOM and forgets it. The token is
// forgotten locally even when OpenBOM did not accept the logout; the error
// only reports that. The app key stays.
func (a *Authenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	token := a.accessToken
	a.accessToken = ""
	a.mu.Unlock()
	if token == "" {
		return nil
	}

	lastStatus := 0
	for _, path := range logoutPaths {
		resp, err := a.http.R().
			SetContext(ctx).
			SetHeader(headerAppKey, a.appKey).
			SetHeader(headerAccessToken, token).
			Post(path)
		if err != nil {
			metrics.RecordAuth("logout_error")
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, fmt.Errorf("openbom logout: %w", err), "openbom logout failed")
		}
		if resp.StatusCode() == http.StatusOK || resp.StatusCode() == http.StatusNoContent {
			metrics.RecordAuth("logout")
			return nil
		}
		lastStatus = resp.StatusCode()
	}

	metrics.RecordAuth("logout_error")
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		fmt.Sprintf("openbom logout returned %d", lastStatus), nil, "9c2e4a6b-1d3f-4b5a-8e7c-3f0a2b4d6e19",
		map[string]any{"status": lastStatus})
}
