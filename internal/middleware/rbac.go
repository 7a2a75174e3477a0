package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
	"github.com/sekolahku/sekolahku-api/pkg/response"
)

// SelfRole is the pseudo-role that lets a user reach routes whose :id
// parameter is their own user id, e.g. a student reading their own record.
const SelfRole = "SELF"

// RBAC gates a route on the caller's role. Missing claims abort with 401,
// an unlisted role with 403.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		allowSelf := false
		for _, a := range allowed {
			if a == SelfRole {
				allowSelf = true
				continue
			}
			if models.UserRole(a) == claims.Role {
				c.Next()
				return
			}
		}

		if allowSelf && c.Param("id") == claims.UserID && claims.UserID != "" {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles adapts a typed role list to RBAC.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
