package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/observability"
)

// Metrics records request count, latency and inflight requests. Unmatched
// routes are grouped under "unmatched" to keep label cardinality bounded.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.InflightInc()
		start := time.Now()
		defer m.InflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
