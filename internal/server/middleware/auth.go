package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusvote/server/internal/auth"
)

const sessionKey = "session"

// TokenVerifier validates a bearer token. Implemented by auth.Service.
type TokenVerifier interface {
	Verify(token string) (*auth.Session, error)
}

// RequireAuth extracts and verifies the session token, aborting with 401
// when absent or invalid. The session lands on the gin context for
// handlers to pick up via SessionFrom.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token", "code": "AUTH_REQUIRED"})
			return
		}
		sess, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token", "code": "AUTH_REQUIRED"})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the authenticated session set by RequireAuth.
func SessionFrom(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}

// extractToken accepts Authorization: Bearer or a token query parameter
// (the latter for EventSource clients, which cannot set headers).
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return c.Query("token")
}
