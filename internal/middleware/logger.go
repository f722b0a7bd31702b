package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/pkg/logger"
)

// Logger emits one access log line per request. Successful probe and
// scrape traffic drops to debug so it does not drown signup activity.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if id := c.GetString(CtxAccountIDKey); id != "" {
			fields = append(fields, zap.String("account_id", id))
		}
		if kind, ok := c.Get(CtxAccountTypeKey); ok {
			if k, ok := kind.(models.AccountKind); ok {
				fields = append(fields, zap.String("account_type", string(k)))
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if ce := logger.WithModule("http").Check(accessLevel(c.Request.URL.Path, status), "request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func accessLevel(path string, status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	case isProbePath(path):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func isProbePath(path string) bool {
	for _, prefix := range []string{"/health", "/api/health", "/metrics"} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
