// Package middleware provides Gin HTTP middleware for error rendering,
// authentication, role gates, rate limiting, security headers and audit
// logging.
//
// Ordering is enforced in api.NewRouter:
//
//	Recovery → RequestID → Metrics → Logger → ErrorHandler → CORS → Security
//	→ RateLimit → Auth → RequireRole → Audit → Handler
//
// ErrorHandler sits outside everything that can fail so auth and role errors
// share the handler envelope.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/auth"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// AuthMiddleware requires a valid Bearer session token and stores the
// caller's id, email and role in the gin context.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			_ = c.Error(apierr.Unauthorized("No token provided"))
			c.Abort()
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			_ = c.Error(apierr.Unauthorized("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// OptionalAuthMiddleware populates the caller identity when a valid token is
// present and never rejects the request.
func OptionalAuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := tokens.Validate(token); err == nil {
				c.Set(ContextUserID, claims.UserID)
				c.Set(ContextEmail, claims.Email)
				c.Set(ContextRole, claims.Role)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// UserID returns the authenticated caller's id, or "" when unauthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Role returns the authenticated caller's role, or "".
func Role(c *gin.Context) string {
	return c.GetString(ContextRole)
}
