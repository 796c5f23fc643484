package middleware

import (
	"acthub-rewardengine/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const (
	// TenantHeader carries the caller's tenant. Every engine call takes the
	// tenant as an explicit parameter; this middleware is the only place
	// that reads it from transport state.
	TenantHeader = "X-Tenant-ID"

	tenantKey = "tenant_id"
)

// Tenant requires the tenant header and stashes it on the request context.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(TenantHeader)
		if tenantID == "" {
			_ = c.Error(errutil.BadRequest("missing "+TenantHeader+" header", nil))
			c.Abort()
			return
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

// TenantID returns the tenant resolved by the Tenant middleware.
func TenantID(c *gin.Context) string {
	return c.GetString(tenantKey)
}
