package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context keys set by TenantContext and read by controllers.
const (
	ContextTenantID = "tenant_id"
	ContextUserID   = "user_id"
)

// TenantContext resolves the effective tenant and acting user for a request.
// Authentication itself happens upstream (gateway-issued headers); this layer
// only makes the identifiers explicit on the request context so services
// never reach for ambient state.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		userID := c.GetHeader("X-User-ID")
		if tenantID == "" || userID == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Tenant and user context required"})
			c.Abort()
			return
		}
		c.Set(ContextTenantID, tenantID)
		c.Set(ContextUserID, userID)
		c.Next()
	}
}
