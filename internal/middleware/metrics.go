package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/service"
)

// Metrics observes every request on the registered route template, so
// /students/:id aggregates as one series instead of one per student. The
// scrape endpoint itself is excluded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
