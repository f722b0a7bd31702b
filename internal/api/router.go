package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/app"
	iauth "github.com/campusbridge/onboard/internal/auth"
	"github.com/campusbridge/onboard/internal/handlers"
	"github.com/campusbridge/onboard/internal/middleware"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/monitoring"
	"github.com/campusbridge/onboard/internal/services"
	"github.com/campusbridge/onboard/internal/storage"
)

// Dependencies carries the services the HTTP layer is built from.
type Dependencies struct {
	DB           *gorm.DB
	JWT          *iauth.JWTService
	Accounts     *services.AccountService
	Verification *services.VerificationService
	Profiles     *services.ProfileService
	Resets       *services.PasswordResetService
	Loader       middleware.AccountLoader

	// Optional.
	DomainPolicy middleware.EmailDomainChecker
	Uploads      *storage.Uploader
	UploadDir    string
	RateStore    middleware.RateStore
	Monitoring   *monitoring.Module
	Cookie       *iauth.SessionCookie
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("database handle must be provided")
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Accounts == nil:
		return fmt.Errorf("account service must be provided")
	case d.Verification == nil:
		return fmt.Errorf("verification service must be provided")
	case d.Profiles == nil:
		return fmt.Errorf("profile service must be provided")
	case d.Resets == nil:
		return fmt.Errorf("password reset service must be provided")
	case d.Loader == nil:
		return fmt.Errorf("account loader must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers the
// institute, student, password reset and operational routes.
func NewRouter(deps Dependencies, cfg *app.Config) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	rateStore := deps.RateStore
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}
	cookie := deps.Cookie
	if cookie == nil {
		cookie = iauth.NewSessionCookie(cfg.Server.SessionCookieConfig())
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		HSTS:          cfg.Server.Cookie.Secure,
		UploadsPrefix: uploadsPath(cfg),
	}))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins))
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF(middleware.CSRFOptions{
			Domain: cfg.Server.Cookie.Domain,
			Secure: cfg.Server.Cookie.Secure,
		}))
	}
	r.Use(middleware.RateLimit(rateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	registerHealthRoutes(r, cfg, deps.Monitoring)
	registerMetricsRoutes(r, cfg, deps.Monitoring)

	api := r.Group("/api")

	authLimit := middleware.RateLimitScope(rateStore, "auth", cfg.Server.RateLimit.AuthRequests, cfg.Server.RateLimit.AuthWindow)
	registerPasswordRoutes(api, handlers.NewPasswordHandler(deps.Resets), authLimit)

	for _, kind := range []struct {
		kind  models.AccountKind
		media string
	}{
		{kind: models.KindInstitute, media: "logo"},
		{kind: models.KindStudent, media: "photo"},
	} {
		registerAccountRoutes(api.Group("/"+kind.kind.Plural()), accountRouteDeps{
			Kind:         kind.kind,
			MediaField:   kind.media,
			AuthHandler:  handlers.NewAuthHandler(kind.kind, deps.Accounts, deps.Verification, cookie),
			Profile:      handlers.NewProfileHandler(kind.kind, deps.Profiles, deps.Uploads, cfg.Server.MaxBodyBytes),
			RequireAuth:  middleware.Auth(deps.JWT, kind.kind, deps.Loader),
			DomainPolicy: middleware.DomainPolicy(deps.DomainPolicy),
			AuthLimit:    authLimit,
		})
	}

	if !cfg.Storage.UsesS3() && strings.TrimSpace(deps.UploadDir) != "" {
		r.Static(uploadsPath(cfg), deps.UploadDir)
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

// uploadsPath mounts local uploads at the path component of the configured base URL.
func uploadsPath(cfg *app.Config) string {
	base := strings.TrimSpace(cfg.Storage.Local.BaseURL)
	if idx := strings.Index(base, "://"); idx >= 0 {
		rest := base[idx+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			base = rest[slash:]
		} else {
			base = ""
		}
	}
	base = "/" + strings.Trim(base, "/")
	if base == "/" {
		return "/uploads"
	}
	return base
}
