package app

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"

	"github.com/campusbridge/onboard/pkg/crypto"
)

const (
	jwtSecretBytes    = 48
	minJWTSecretBytes = 32
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	return generated, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	var err error
	if n := KeyByteLength(c.Auth.JWT.Secret); n < minJWTSecretBytes {
		err = multierr.Append(err, fmt.Errorf("auth.jwt.secret must be at least %d bytes, got %d", minJWTSecretBytes, n))
	}

	if frontend := c.Email.ResetBaseURL(); frontend != "" {
		if parsed, parseErr := url.Parse(frontend); parseErr != nil || parsed.Scheme == "" || parsed.Host == "" {
			err = multierr.Append(err, fmt.Errorf("email.frontend_url must be an absolute URL"))
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "local":
	case "s3":
		if strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			err = multierr.Append(err, fmt.Errorf("storage.s3.bucket is required for the s3 driver"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	if c.Cache.Redis.Enabled && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		err = multierr.Append(err, fmt.Errorf("cache.redis.address is required when redis is enabled"))
	}

	return err
}
