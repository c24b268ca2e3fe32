package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userID"
	tokenKey  = "sessionToken"
)

// Authenticator resolves a bearer token to the account it belongs to.
type Authenticator interface {
	UserForToken(ctx context.Context, token string) (userID string, err error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (string, error)

// UserForToken implements Authenticator.
func (f AuthenticatorFunc) UserForToken(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// BearerAuth requires "Authorization: Bearer <token>" and stores the
// resolved user id and the raw token in the context. Any failure is a 401.
func BearerAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		uid, err := a.UserForToken(c.Request.Context(), token)
		if err != nil || uid == "" {
			LoggerFrom(c).Debug().Err(err).Msg("bearer token rejected")
			unauthorized(c, "invalid or expired session")
			return
		}
		c.Set(userIDKey, uid)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID returns the id set by BearerAuth, or "".
func UserID(c *gin.Context) string { return c.GetString(userIDKey) }

// SessionToken returns the token set by BearerAuth, or "".
func SessionToken(c *gin.Context) string { return c.GetString(tokenKey) }

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="journal"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       "unauthorized",
		"message":    msg,
	})
}
