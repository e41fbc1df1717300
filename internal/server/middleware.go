package server

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/khantimmy27/portfolio/internal/metrics"
)

// requestLogger logs one line per request at debug level, and at warn for
// server errors.
func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"took", time.Since(start).Round(time.Microsecond),
		}
		if status >= 500 {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

// pageViewMiddleware counts page requests. Static assets, fragments, API and
// operational endpoints are skipped, as are requests sending DNT: 1.
func pageViewMiddleware(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/views/") ||
			strings.HasPrefix(path, "/api/") ||
			strings.HasPrefix(path, "/favicon") ||
			path == "/metrics" ||
			path == "/healthz" {
			c.Next()
			return
		}

		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.IncPageView(route)
	}
}
