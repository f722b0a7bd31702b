package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campusbridge/onboard/pkg/errors"
)

type stubDomainChecker struct {
	checked []string
}

func (s *stubDomainChecker) Check(_ context.Context, email string) error {
	s.checked = append(s.checked, email)
	if strings.HasSuffix(email, "@mailinator.com") {
		return apperrors.New("BLOCKED_DOMAIN", "blocked", http.StatusBadRequest)
	}
	return nil
}

func TestDomainPolicyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	checker := &stubDomainChecker{}
	handled := 0
	r := gin.New()
	r.POST("/signup", DomainPolicy(checker), func(c *gin.Context) {
		var body struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		require.NoError(t, c.ShouldBindBodyWith(&body, binding.JSON))
		handled++
		c.JSON(http.StatusCreated, body)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"test@mailinator.com","name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "BLOCKED_DOMAIN", errorCode(t, w))
	require.Zero(t, handled)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"admin@springfield.edu","name":"Springfield"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "Springfield")
	require.Equal(t, 1, handled)

	require.Equal(t, []string{"test@mailinator.com", "admin@springfield.edu"}, checker.checked)
}
