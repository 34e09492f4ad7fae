package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"civicsync/models"
	"civicsync/store"
)

// SessionContextKey holds the models.Session of an authenticated request.
const SessionContextKey = "session"

// SessionMiddleware admits requests whose bearer token matches the current
// session. The token is a capability string, not a verified credential.
func SessionMiddleware(sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		current, ok := sessions.Current()
		if !ok || subtle.ConstantTimeCompare([]byte(tokenString), []byte(current.Token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			c.Abort()
			return
		}

		c.Set(SessionContextKey, current)
		c.Next()
	}
}

// RequireRole rejects sessions of any other role. It must run after
// SessionMiddleware.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}
		if session.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "This action requires the " + string(role) + " role"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session SessionMiddleware attached to c.
func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, exists := c.Get(SessionContextKey)
	if !exists {
		return models.Session{}, false
	}
	session, ok := v.(models.Session)
	return session, ok
}
