package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/campusbridge/onboard/internal/auth"
	"github.com/campusbridge/onboard/internal/models"
	apperrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/response"
)

type fakeAccounts map[string]models.AccountRecord

func (f fakeAccounts) FindByID(_ context.Context, kind models.AccountKind, id string) (models.AccountRecord, error) {
	record, ok := f[id]
	if !ok || record.Kind() != kind {
		return nil, apperrors.ErrNotFound
	}
	return record, nil
}

func newAuthRouter(t *testing.T) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	accounts := fakeAccounts{
		"inst-1": &models.Institute{Account: models.Account{BaseModel: models.BaseModel{ID: "inst-1"}, IsVerified: true}},
		"inst-2": &models.Institute{Account: models.Account{BaseModel: models.BaseModel{ID: "inst-2"}}},
		"stud-1": &models.Student{Account: models.Account{BaseModel: models.BaseModel{ID: "stud-1"}, IsVerified: true}},
	}

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc, models.KindInstitute, accounts), func(c *gin.Context) {
		record := c.MustGet(CtxAccountKey).(models.AccountRecord)
		c.JSON(http.StatusOK, gin.H{
			"account_id":   c.GetString(CtxAccountIDKey),
			"account_type": string(c.MustGet(CtxAccountTypeKey).(models.AccountKind)),
			"loaded_id":    record.AccountBase().ID,
		})
	})
	return r, jwtSvc
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotNil(t, payload.Error)
	return payload.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	r, jwtSvc := newAuthRouter(t)

	token, err := jwtSvc.GenerateAccessToken(models.KindInstitute, "inst-1")
	require.NoError(t, err)

	// Missing token -> 401
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	// Valid bearer token -> downstream handler executes
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "inst-1", payload["account_id"])
	require.Equal(t, "institute", payload["account_type"])
	require.Equal(t, "inst-1", payload["loaded_id"])
}

func TestAuthMiddlewareCookies(t *testing.T) {
	r, jwtSvc := newAuthRouter(t)

	token, err := jwtSvc.GenerateAccessToken(models.KindInstitute, "inst-1")
	require.NoError(t, err)

	for _, name := range []string{iauth.CookieName, iauth.LegacyCookieName} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.AddCookie(&http.Cookie{Name: name, Value: token})
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, name)
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	r, jwtSvc := newAuthRouter(t)

	cases := []struct {
		name   string
		kind   models.AccountKind
		id     string
		token  string
		status int
		code   string
	}{
		{name: "garbage token", token: "not-a-jwt", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "student token", kind: models.KindStudent, id: "stud-1", status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "unknown account", kind: models.KindInstitute, id: "ghost", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "unverified account", kind: models.KindInstitute, id: "inst-2", status: http.StatusForbidden, code: "EMAIL_NOT_VERIFIED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := tc.token
			if token == "" {
				var err error
				token, err = jwtSvc.GenerateAccessToken(tc.kind, tc.id)
				require.NoError(t, err)
			}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.code, errorCode(t, w))
		})
	}
}
