// rbac.go gates routes on the caller's role.
//
// Roles are read from the session token rather than the database, so a role
// change takes effect when the user next signs in.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/auth"
	"github.com/admitai/admitai-korea/internal/db/models"
)

// RequireRole lets the request through when the caller's role satisfies any
// of roles on the permission ladder (see auth.HasRole). It must run after
// AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserID); !ok {
			_ = c.Error(apierr.Unauthorized(""))
			c.Abort()
			return
		}
		if !auth.HasRole(Role(c), roles...) {
			_ = c.Error(apierr.Forbidden(""))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CanActFor reports whether the caller may read or change data owned by
// ownerID. Anonymous callers are allowed; signed-in callers must own the data
// or hold ADMIN.
func CanActFor(c *gin.Context, ownerID string) bool {
	caller := UserID(c)
	if caller == "" || caller == ownerID {
		return true
	}
	return auth.HasRole(Role(c), models.RoleAdmin)
}

// OwnerOrCaller resolves the user a request targets. An explicit id wins;
// otherwise the signed-in caller is used. The second result is false when
// the caller may not act for the resolved user.
func OwnerOrCaller(c *gin.Context, requested string) (string, bool) {
	if requested == "" {
		requested = UserID(c)
	}
	if requested == "" {
		return "", true
	}
	return requested, CanActFor(c, requested)
}
