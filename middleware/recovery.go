package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery catches panics raised by downstream handlers, logs them with a
// stack trace, and converts them into an HTTP 500 so the connection is not
// dropped mid-response.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error("panic recovered",
				zap.Any("error", r),
				zap.String("trace_id", GetTraceID(c)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    "internal server error",
				"trace_id": GetTraceID(c),
			})
		}()
		c.Next()
	}
}
