package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/internal/models"
	"github.com/college-clubs/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. It runs
// after JWT in the chain and never re-validates the token itself; a valid but
// under-privileged principal gets 403, never 401.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		p, ok := authz.FromContext(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[p.Role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin gates the account-management routes.
func RequireSuperAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleSuperAdmin)
}
