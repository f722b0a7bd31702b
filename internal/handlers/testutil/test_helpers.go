package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/api"
	"github.com/campusbridge/onboard/internal/app"
	iauth "github.com/campusbridge/onboard/internal/auth"
	"github.com/campusbridge/onboard/internal/cache"
	sharedtestutil "github.com/campusbridge/onboard/internal/database/testutil"
	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/internal/middleware"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/monitoring"
	"github.com/campusbridge/onboard/internal/monitoring/checks"
	"github.com/campusbridge/onboard/internal/sections"
	"github.com/campusbridge/onboard/internal/services"
	"github.com/campusbridge/onboard/internal/storage"
	"github.com/campusbridge/onboard/pkg/mail"
	"github.com/campusbridge/onboard/pkg/response"
)

// VerificationCode is issued to every account created through the test environment.
const VerificationCode = "424242"

// NoMXDomain is a domain the fake resolver reports as unable to receive mail.
const NoMXDomain = "no-mail.example"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T          *testing.T
	DB         *gorm.DB
	Router     *gin.Engine
	JWT        *iauth.JWTService
	Mailer     *CaptureMailer
	Store      *services.GormAccountStore
	Monitoring *monitoring.Module
	UploadDir  string
	csrfToken  string
	csrfCookie *http.Cookie
}

// CaptureMailer records outgoing messages instead of delivering them.
type CaptureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *CaptureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of every message sent so far.
func (m *CaptureMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// Last returns the most recent message, failing the test when none was sent.
func (m *CaptureMailer) Last(t *testing.T) mail.Message {
	t.Helper()
	msgs := m.Messages()
	require.NotEmpty(t, msgs, "expected an email to be sent")
	return msgs[len(msgs)-1]
}

type fakeMXResolver struct{}

func (fakeMXResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if strings.EqualFold(strings.TrimSuffix(name, "."), NoMXDomain) {
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return []*net.MX{{Host: "mx." + name, Pref: 10}}, nil
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	uploadDir := t.TempDir()

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	cfg := &app.Config{
		Server: app.ServerConfig{
			Environment:  "test",
			CSRF:         app.CSRFConfig{Enabled: true},
			MaxBodyBytes: 16 << 10,
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Email: app.EmailConfig{AppName: "CampusBridge", FrontendURL: "http://localhost:5173"},
		Storage: app.StorageConfig{
			Driver:         "local",
			MaxUploadBytes: 64 << 10,
			Local:          app.LocalStorageConfig{Dir: uploadDir, BaseURL: "/uploads"},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true, Timeout: time.Second},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	store, err := services.NewGormAccountStore(db)
	require.NoError(t, err)

	mailer := &CaptureMailer{}
	verification, err := services.NewVerificationService(store, mailer,
		services.WithAppName(cfg.Email.AppName),
		services.WithCodeGenerator(func() (string, error) { return VerificationCode, nil }),
	)
	require.NoError(t, err)

	resolver := identity.NewResolver(identity.DefaultRegion)
	accounts, err := services.NewAccountService(store, resolver, verification, jwtSvc)
	require.NoError(t, err)

	profiles, err := services.NewProfileService(store, sections.NewRegistry(resolver))
	require.NoError(t, err)

	resets, err := services.NewPasswordResetService(db, store, mailer, cfg.Email.FrontendURL)
	require.NoError(t, err)

	local, err := storage.NewLocalStore(uploadDir, "/uploads")
	require.NoError(t, err)
	uploads, err := storage.NewUploader(local, cfg.Storage.MaxUploadBytes)
	require.NoError(t, err)

	kv := cache.NewDatabaseStore(db)
	policy := services.NewDomainPolicy(services.DomainPolicyConfig{
		BlockedDomains: services.DefaultBlockedDomains,
		CheckMX:        true,
	}, services.WithMXResolver(fakeMXResolver{}), services.WithDomainCache(kv))

	mon, err := monitoring.NewModule(monitoring.Options{IncludeDefaultRegistry: true})
	require.NoError(t, err)
	mon.Health().RegisterReadiness(checks.Database(db, time.Second))
	mon.Health().RegisterReadiness(checks.Cache(kv, "database", time.Second))

	router, err := api.NewRouter(api.Dependencies{
		DB:           db,
		JWT:          jwtSvc,
		Accounts:     accounts,
		Verification: verification,
		Profiles:     profiles,
		Resets:       resets,
		Loader:       store,
		DomainPolicy: policy,
		Uploads:      uploads,
		UploadDir:    uploadDir,
		RateStore:    middleware.NewCacheRateStore(kv),
		Monitoring:   mon,
	}, cfg)
	require.NoError(t, err)

	return &Env{
		T:          t,
		DB:         db,
		Router:     router,
		JWT:        jwtSvc,
		Mailer:     mailer,
		Store:      store,
		Monitoring: mon,
		UploadDir:  uploadDir,
	}
}

// Signup registers an account through the API and returns the decoded response.
func (e *Env) Signup(kind models.AccountKind, payload map[string]any) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.Request(http.MethodPost, "/api/"+kind.Plural()+"/auth/signup", payload, "")
}

// CreateVerifiedAccount signs up and verifies an account, returning its email.
func (e *Env) CreateVerifiedAccount(kind models.AccountKind, email, phone, password string) string {
	e.T.Helper()

	nameField := "full_name"
	if kind == models.KindInstitute {
		nameField = "institute_name"
	}
	w := e.Signup(kind, map[string]any{
		nameField:  "Test Account",
		"email":    email,
		"phone":    phone,
		"password": password,
	})
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	w = e.Request(http.MethodPost, "/api/"+kind.Plural()+"/verify", map[string]string{
		"email": email,
		"code":  VerificationCode,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
	return strings.ToLower(email)
}

// LoginResult bundles the JSON response from POST /api/{kind}/auth/login.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresIn int             `json:"expires_in"`
	User      json.RawMessage `json:"user"`
	UserType  string          `json:"userType"`
}

// Login authenticates with an email or phone number and returns the issued token.
func (e *Env) Login(kind models.AccountKind, identifier, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	w := e.Request(http.MethodPost, "/api/"+kind.Plural()+"/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	require.Greater(e.T, result.ExpiresIn, 0)
	require.Equal(e.T, string(kind), result.UserType)

	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.RequestWithHeaders(method, path, body, token, nil)
}

// RequestWithHeaders is Request with extra headers such as If-Match.
func (e *Env) RequestWithHeaders(method, path string, body any, token string, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.do(req, token, false)
}

// Upload posts a single multipart file under field.
func (e *Env) Upload(path, field, filename string, data []byte, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(e.T, err)
	_, err = part.Write(data)
	require.NoError(e.T, err)
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(req, token, false)
}

func (e *Env) do(req *http.Request, token string, skipCSRF bool) *httptest.ResponseRecorder {
	e.T.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if !skipCSRF && token == "" && requiresCSRFAttestation(req.Method) {
		e.ensureCSRFToken()
		if e.csrfCookie != nil {
			req.AddCookie(e.csrfCookie)
		}
		if e.csrfToken != "" {
			req.Header.Set(middleware.CSRFHeaderName, e.csrfToken)
		}
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	e.captureCSRF(w.Result())
	return w
}

func (e *Env) ensureCSRFToken() {
	if e.csrfToken != "" && e.csrfCookie != nil {
		return
	}
	req, err := http.NewRequest(http.MethodGet, "/health/live", nil)
	require.NoError(e.T, err)
	resp := e.do(req, "", true)
	require.Equal(e.T, http.StatusOK, resp.Code, resp.Body.String())
}

func (e *Env) captureCSRF(resp *http.Response) {
	if resp == nil {
		return
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(middleware.CSRFHeaderName); token != "" {
		e.csrfToken = token
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CSRFCookieName {
			// Clone to avoid unintended mutations between tests
			e.csrfCookie = &http.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Path:     c.Path,
				Domain:   c.Domain,
				Expires:  c.Expires,
				MaxAge:   c.MaxAge,
				Secure:   c.Secure,
				HttpOnly: c.HttpOnly,
				SameSite: c.SameSite,
			}
			break
		}
	}
}

func requiresCSRFAttestation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
