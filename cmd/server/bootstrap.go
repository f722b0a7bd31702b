package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/api"
	"github.com/campusbridge/onboard/internal/app"
	"github.com/campusbridge/onboard/internal/app/maintenance"
	iauth "github.com/campusbridge/onboard/internal/auth"
	"github.com/campusbridge/onboard/internal/cache"
	"github.com/campusbridge/onboard/internal/database"
	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/internal/middleware"
	"github.com/campusbridge/onboard/internal/monitoring"
	"github.com/campusbridge/onboard/internal/monitoring/checks"
	"github.com/campusbridge/onboard/internal/sections"
	"github.com/campusbridge/onboard/internal/services"
	"github.com/campusbridge/onboard/internal/storage"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	Cache      cache.Store
	Monitoring *monitoring.Module
	Cleaner    *maintenance.Cleaner
	RateStore  middleware.RateStore
	Router     *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore
	cacheBackend := "database"
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			stack.Cache = stack.Redis
			cacheBackend = "redis"
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	stack.RateStore = middleware.NewCacheRateStore(stack.Cache)

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{IncludeDefaultRegistry: true})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)
	registerHealthChecks(stack.Monitoring, cfg, stack.DB, stack.Cache, cacheBackend)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := initialiseMailer(cfg, log)
	if err != nil {
		return nil, err
	}

	accountStore, err := services.NewGormAccountStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise account store: %w", err)
	}

	verification, err := services.NewVerificationService(accountStore, mailer, cfg.Verification.Options(cfg.Email.AppName)...)
	if err != nil {
		return nil, fmt.Errorf("initialise verification service: %w", err)
	}

	resolver := identity.NewResolver(cfg.Identity.Region())
	accounts, err := services.NewAccountService(accountStore, resolver, verification, jwtSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	profiles, err := services.NewProfileService(accountStore, sections.NewRegistry(resolver))
	if err != nil {
		return nil, fmt.Errorf("initialise profile service: %w", err)
	}

	resets, err := services.NewPasswordResetService(stack.DB, accountStore, mailer, cfg.Email.ResetBaseURL(),
		services.WithResetTokenTTL(cfg.Auth.ResetTokenTTL()),
		services.WithResetAppName(cfg.Email.AppName))
	if err != nil {
		return nil, fmt.Errorf("initialise password reset service: %w", err)
	}

	policy := services.NewDomainPolicy(cfg.DomainPolicy.PolicyConfig(),
		services.WithMXResolver(net.DefaultResolver),
		services.WithDomainCache(stack.Cache))

	uploads, uploadDir, err := initialiseUploads(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(resets, accountStore,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithStaleCodeAge(cfg.Maintenance.StaleCodeAge),
			maintenance.WithResetTokenAge(cfg.Maintenance.ResetTokenAge),
			maintenance.WithCachePurger(dbStore))
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
		if err := stack.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("initial maintenance run failed", zap.Error(err))
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:           stack.DB,
		JWT:          jwtSvc,
		Accounts:     accounts,
		Verification: verification,
		Profiles:     profiles,
		Resets:       resets,
		Loader:       accountStore,
		DomainPolicy: policy,
		Uploads:      uploads,
		UploadDir:    uploadDir,
		RateStore:    stack.RateStore,
		Monitoring:   stack.Monitoring,
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(mon *monitoring.Module, cfg *app.Config, db *gorm.DB, kv cache.Store, backend string) {
	timeout := cfg.Monitoring.Health.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	health := mon.Health()
	health.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Component: "process", Status: monitoring.StatusUp}
	}))
	health.RegisterReadiness(checks.Database(db, timeout))
	health.RegisterReadiness(checks.Cache(kv, backend, timeout))
	if cfg.Maintenance.Enabled {
		health.RegisterReadiness(checks.Maintenance(0))
	}
}

// initialiseMailer returns nil when SMTP is disabled; services then log
// undelivered codes and links instead of failing the request.
func initialiseMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	settings := cfg.Email.SMTPSettings()
	if !settings.Enabled {
		log.Warn("smtp disabled; verification codes and reset links will not be emailed")
		return nil, nil
	}
	mailer, err := mail.NewSMTPMailer(settings)
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	return mailer, nil
}

func initialiseUploads(ctx context.Context, cfg *app.Config) (*storage.Uploader, string, error) {
	var (
		store storage.Store
		dir   string
	)
	if cfg.Storage.UsesS3() {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage.S3Settings())
		if err != nil {
			return nil, "", fmt.Errorf("initialise s3 storage: %w", err)
		}
		store = s3Store
	} else {
		local, err := storage.NewLocalStore(cfg.Storage.Local.Dir, cfg.Storage.Local.BaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("initialise local storage: %w", err)
		}
		store = local
		dir = local.Dir()
	}

	uploads, err := storage.NewUploader(store, cfg.Storage.MaxUploadBytes)
	if err != nil {
		return nil, "", fmt.Errorf("initialise uploader: %w", err)
	}
	return uploads, dir, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("maintenance: %w", ctx.Err()))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	if s.DB != nil {
		errs = multierr.Append(errs, closeDatabase(s.DB, log))
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Prepare(db); err != nil {
		_ = closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return err
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
		return err
	}
	return nil
}
