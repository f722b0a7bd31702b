package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	appErrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type cooldownErr struct{ seconds int }

func (e cooldownErr) Error() string          { return "cooldown" }
func (e cooldownErr) RetryAfterSeconds() int { return e.seconds }

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"message": "ok"})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, appErrors.ErrForbidden)

	require.Equal(t, appErrors.ErrForbidden.StatusCode, rec.Code)
	resp := decode(t, rec)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, appErrors.ErrForbidden.Code, resp.Error.Code)
}

func TestErrorRendersFields(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, appErrors.NewValidation(map[string]string{"courses[2].name": "name is required"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	require.Equal(t, "name is required", resp.Error.Fields["courses[2].name"])
}

func TestErrorRendersRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, appErrors.ErrRateLimit.WithInternal(cooldownErr{seconds: 42}))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "42", rec.Header().Get("Retry-After"))
	resp := decode(t, rec)
	require.Equal(t, 42, resp.Error.RetryAfter)
}

func TestErrorWithGenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.Empty(t, resp.Error.Detail)
}

func TestErrorDetailInDevelopment(t *testing.T) {
	ExposeErrorDetail(true)
	t.Cleanup(func() { ExposeErrorDetail(false) })

	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("boom"))

	resp := decode(t, rec)
	require.Equal(t, "boom", resp.Error.Detail)
}
