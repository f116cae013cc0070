package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusvote/server/internal/logger"
	"github.com/campusvote/server/internal/metrics"
)

// Observe logs each request and records the HTTP request counter, labeled
// by route template rather than raw path to keep cardinality bounded.
func Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(c.Request.Method, path, strconv.Itoa(status))

		logger.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start).String(),
		)
	}
}
