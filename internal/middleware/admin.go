package middleware

import (
	"net/http"
	"slices"

	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
)

type AdminMiddleware struct {
	adminUsers []string
}

func NewAdminMiddleware(adminUsers []string) *AdminMiddleware {
	return &AdminMiddleware{
		adminUsers: adminUsers,
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AdminMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := GetCallerID(c)
		if callerID == "" {
			unauthenticated(c, "authentication required")
			return
		}

		if !slices.Contains(m.adminUsers, callerID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "kind": services.KindAccessDenied})
			return
		}

		c.Next()
	}
}
