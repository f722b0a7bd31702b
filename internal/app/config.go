package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the onboarding backend.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Email        EmailConfig        `mapstructure:"email"`
	Verification VerificationConfig `mapstructure:"verification"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	DomainPolicy DomainPolicyConfig `mapstructure:"domain_policy"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Maintenance  MaintenanceConfig  `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int             `mapstructure:"port"`
	LogLevel    string          `mapstructure:"log_level"`
	Environment string          `mapstructure:"environment"`
	CORS        CORSConfig      `mapstructure:"cors"`
	CSRF        CSRFConfig      `mapstructure:"csrf"`
	Cookie      CookieConfig    `mapstructure:"cookie"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	// MaxBodyBytes bounds JSON request bodies on profile endpoints.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c ServerConfig) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// CORSConfig lists browser origins allowed to call the API with credentials.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CSRFConfig controls CSRF protection middleware.
type CSRFConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CookieConfig controls the auth cookie attributes.
type CookieConfig struct {
	Domain   string `mapstructure:"domain"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
}

// RateLimitConfig bounds request rates per client address.
type RateLimitConfig struct {
	Requests     int           `mapstructure:"requests"`
	Window       time.Duration `mapstructure:"window"`
	AuthRequests int           `mapstructure:"auth_requests"`
	AuthWindow   time.Duration `mapstructure:"auth_window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	LogLevel string       `mapstructure:"log_level"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT           JWTSettings   `mapstructure:"jwt"`
	PasswordReset ResetSettings `mapstructure:"password_reset"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// ResetSettings configures password reset links.
type ResetSettings struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP        SMTPConfig `mapstructure:"smtp"`
	AppName     string     `mapstructure:"app_name"`
	FrontendURL string     `mapstructure:"frontend_url"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// VerificationConfig tunes the email verification code lifecycle.
type VerificationConfig struct {
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
}

// IdentityConfig controls login credential parsing.
type IdentityConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
}

// DomainPolicyConfig controls which signup email domains are accepted.
type DomainPolicyConfig struct {
	BlockedDomains []string      `mapstructure:"blocked_domains"`
	CheckMX        bool          `mapstructure:"check_mx"`
	MXTimeout      time.Duration `mapstructure:"mx_timeout"`
	MXCacheTTL     time.Duration `mapstructure:"mx_cache_ttl"`
}

// StorageConfig selects where uploaded logos and photos are kept.
type StorageConfig struct {
	Driver         string             `mapstructure:"driver"`
	MaxUploadBytes int64              `mapstructure:"max_upload_bytes"`
	Local          LocalStorageConfig `mapstructure:"local"`
	S3             S3StorageConfig    `mapstructure:"s3"`
}

// LocalStorageConfig stores uploads on disk and serves them from BaseURL.
type LocalStorageConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// S3StorageConfig targets an S3 compatible bucket.
type S3StorageConfig struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	PublicURL    string `mapstructure:"public_url"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MaintenanceConfig schedules the cleanup jobs.
type MaintenanceConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Schedule      string        `mapstructure:"schedule"`
	StaleCodeAge  time.Duration `mapstructure:"stale_code_age"`
	ResetTokenAge time.Duration `mapstructure:"reset_token_age"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ONBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "production")
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.csrf.enabled", false)
	v.SetDefault("server.cookie.domain", "")
	v.SetDefault("server.cookie.secure", false)
	v.SetDefault("server.cookie.same_site", "lax")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit.requests", 300)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.rate_limit.auth_requests", 20)
	v.SetDefault("server.rate_limit.auth_window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/onboard.sqlite")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.mysql.port", 3306)

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "onboard:")

	v.SetDefault("auth.jwt.issuer", "onboard")
	v.SetDefault("auth.jwt.access_token_ttl", "24h")
	v.SetDefault("auth.password_reset.token_ttl", "1h")

	v.SetDefault("email.app_name", "CampusBridge")
	v.SetDefault("email.frontend_url", "http://localhost:5173")
	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("verification.code_ttl", "10m")
	v.SetDefault("verification.resend_cooldown", "60s")
	v.SetDefault("verification.max_attempts", 5)

	v.SetDefault("identity.default_region", "IN")

	v.SetDefault("domain_policy.blocked_domains", []string{})
	v.SetDefault("domain_policy.check_mx", true)
	v.SetDefault("domain_policy.mx_timeout", "3s")
	v.SetDefault("domain_policy.mx_cache_ttl", "6h")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.max_upload_bytes", 5<<20)
	v.SetDefault("storage.local.dir", "./data/uploads")
	v.SetDefault("storage.local.base_url", "/uploads")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.health_check.timeout", "2s")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.schedule", "@every 1h")
	v.SetDefault("maintenance.stale_code_age", "24h")
	v.SetDefault("maintenance.reset_token_age", "24h")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
