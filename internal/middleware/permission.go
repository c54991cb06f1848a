package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
	"github.com/noah-isme/edulearn-api/pkg/response"
)

// RequirePermission gates a route on a capability. Admins always pass,
// teachers need the capability in their set, students always fail. It
// must run after Auth.
func RequirePermission(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentAccount(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !user.HasPermission(capability) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
