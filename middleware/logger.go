package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger emits one structured log line per request. Server errors log at
// error level so they surface in filtered log streams.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("trace_id", GetTraceID(c)),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := GetUserID(c); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}

		switch {
		case status >= 500:
			log.Error("http", fields...)
		case status >= 400:
			log.Warn("http", fields...)
		default:
			log.Info("http", fields...)
		}
	}
}
