package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/admin-api/internal/service"
)

// Metrics returns middleware that captures request metrics using the provided service.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
		if status == http.StatusForbidden {
			role := "anonymous"
			if value, ok := c.Get(ContextActorKey); ok {
				if actor, ok := value.(service.Actor); ok {
					role = string(actor.Role)
				}
			}
			metricsSvc.ObserveAuthDenied(role)
		}
	}
}
