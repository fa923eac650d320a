package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-Id"
	SessionCookie = "session_id"
	sessionKey    = "session_id"
	maxSessionID  = 128
)

// Session resolves the chat session of a request: the X-Session-Id header
// first, then the session_id cookie, else a fresh id. The id is echoed in
// both so clients without cookies can keep using it.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if id == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				id = strings.TrimSpace(cookie)
			}
		}
		if id == "" || len(id) > maxSessionID {
			id = uuid.NewString()
		}

		c.Set(sessionKey, id)
		c.Writer.Header().Set(SessionHeader, id)
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Next()
	}
}

// SessionIDFromContext returns the session id resolved by Session.
func SessionIDFromContext(c *gin.Context) string {
	return c.GetString(sessionKey)
}
