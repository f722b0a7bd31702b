package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSessionCookieSetAndClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cookie := NewSessionCookie(CookieConfig{Secure: true, SameSite: "strict"})

	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	cookie.Set(ctx, "signed-token", time.Hour)

	res := rec.Result()
	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, CookieName, cookies[0].Name)
	require.Equal(t, "signed-token", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)
	require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	require.Equal(t, 3600, cookies[0].MaxAge)
	require.Equal(t, "/", cookies[0].Path)

	rec = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(rec)
	cookie.Clear(ctx)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 2)
	for _, c := range cleared {
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0)
	}
}
