package middleware

import (
	"time"

	"assetdesk/internal"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request: method, path, status and latency.
// Server errors are logged at error level, client errors at warn.
func RequestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		line := "[http] %s %s -> %d in %s"
		args := []interface{}{c.Request.Method, c.Request.URL.Path, status, time.Since(start)}
		switch {
		case status >= 500:
			if len(c.Errors) > 0 {
				line += ": %s"
				args = append(args, c.Errors.String())
			}
			logger.Error(line, args...)
		case status >= 400:
			logger.Warn(line, args...)
		default:
			logger.Info(line, args...)
		}
	}
}
