package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
)

// Metrics records request latency labelled by route pattern, not raw path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
