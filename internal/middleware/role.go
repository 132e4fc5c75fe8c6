package middleware

import (
	"net/http"

	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures the authenticated caller has the given role.
func RequireRole(requiredRole domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		if role.(string) != string(requiredRole) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminOnly requires the admin role.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}

// RequireElevated is the management-surface capability check: admin role
// plus the elevated flag the panel unlock put on the session. A plain
// admin token is not enough to mutate the roster.
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != string(domain.RoleAdmin) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Admin role required")
			c.Abort()
			return
		}

		elevated, _ := c.Get("elevated")
		if elevated != true {
			response.Error(c, http.StatusForbidden, "NOT_ELEVATED", "Unlock the panel first")
			c.Abort()
			return
		}

		c.Next()
	}
}
