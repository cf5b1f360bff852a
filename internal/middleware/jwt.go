package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/college-clubs/backend/internal/auth"
	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/pkg/response"
)

// JWT returns a middleware that validates the bearer token and stores the
// resolved principal in the context. All three failure modes (missing,
// invalid, expired) are 401; privilege failures are left to RequireRole and
// the ownership checks, which answer 403.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				response.Unauthorized(c, "token expired")
			} else {
				response.Unauthorized(c, "invalid token")
			}
			c.Abort()
			return
		}
		authz.Set(c, authz.Principal{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  claims.Role,
		})
		c.Next()
	}
}
