package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ZapLogger returns a middleware that logs HTTP requests using zap logger.
// It logs API paths (/api/*) at info level and other paths at debug level.
// Authenticated requests carry user_id; failed ones carry gin's error list.
func ZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		path := c.Request.URL.Path
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", dur.String(),
			"clientIP", c.ClientIP(),
		}
		if v, ok := c.Get(CtxUserID); ok {
			if id, ok := v.(uuid.UUID); ok {
				fields = append(fields, "user_id", id.String())
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case !strings.HasPrefix(path, "/api/"):
			log.Sugar().Debugw("HTTP", fields...)
		case c.Writer.Status() >= 500:
			log.Sugar().Warnw("HTTP", fields...)
		default:
			log.Sugar().Infow("HTTP", fields...)
		}
	}
}
