// Package metrics records Prometheus metrics for every request.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/lazycounter/pkg/observability/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics creates middleware that records request duration, request count
// and the in-flight gauge. The path label is the route template so unknown
// paths collapse into a single series.
func Metrics(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.IncrementInFlight()
		defer m.DecrementInFlight()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		m.Record(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
