package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/pkg/logger"
)

func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	previous := logger.Logger()
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(previous) })
	return logs
}

func TestLoggerWritesAccessLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeLogs(t, zapcore.DebugLevel)

	r := gin.New()
	r.Use(Logger())
	r.GET("/api/students/me/wizard/:step", func(c *gin.Context) {
		c.Set(CtxAccountIDKey, "acc-1")
		c.Set(CtxAccountTypeKey, models.KindStudent)
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/students/me/wizard/skills", nil))
	require.Equal(t, http.StatusOK, w.Code)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)

	ctx := entries[0].ContextMap()
	require.Equal(t, "http", ctx["module"])
	require.Equal(t, "/api/students/me/wizard/:step", ctx["route"])
	require.Equal(t, "acc-1", ctx["account_id"])
	require.Equal(t, "student", ctx["account_type"])
	require.EqualValues(t, 2, ctx["bytes"])
}

func TestLoggerLevels(t *testing.T) {
	cases := []struct {
		path   string
		status int
		level  zapcore.Level
	}{
		{path: "/health/live", status: http.StatusOK, level: zapcore.DebugLevel},
		{path: "/metrics", status: http.StatusOK, level: zapcore.DebugLevel},
		{path: "/healthy-snacks", status: http.StatusOK, level: zapcore.InfoLevel},
		{path: "/health/ready", status: http.StatusServiceUnavailable, level: zapcore.ErrorLevel},
		{path: "/api/students/me", status: http.StatusUnauthorized, level: zapcore.WarnLevel},
	}
	for _, tc := range cases {
		require.Equal(t, tc.level, accessLevel(tc.path, tc.status), tc.path)
	}
}
