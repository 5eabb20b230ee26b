package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bharatvidya/lms-api/internal/service"
)

// InvalidateDashboard drops cached dashboard payloads after a successful
// mutating request. Attach it to write routes whose data feeds the
// dashboards.
func InvalidateDashboard(dashboard *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if dashboard == nil {
			return
		}
		if c.Request.Method == http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status >= 200 && status < 300 {
			dashboard.InvalidateAll(c.Request.Context())
		}
	}
}
