package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quietdrop/quietdrop-api/internal/service"
)

// Metrics returns middleware that captures request metrics using the
// provided service. Scrapes and liveness probes are not observed; they
// would drown out the secret traffic series.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	skip := map[string]struct{}{
		"/metrics": {},
		"/health":  {},
		"/ready":   {},
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		// Route pattern only. Raw paths would leak short ids into label
		// values and blow up series cardinality on scans.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
