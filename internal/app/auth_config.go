package app

import (
	"time"

	"github.com/campusbridge/onboard/internal/auth"
)

const defaultResetTokenTTL = time.Hour

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// ResetTokenTTL returns the lifetime of password reset links.
func (c AuthConfig) ResetTokenTTL() time.Duration {
	if c.PasswordReset.TokenTTL <= 0 {
		return defaultResetTokenTTL
	}
	return c.PasswordReset.TokenTTL
}

// SessionCookieConfig converts the server cookie settings for the auth package.
func (c ServerConfig) SessionCookieConfig() auth.CookieConfig {
	return auth.CookieConfig{
		Domain:   c.Cookie.Domain,
		Path:     "/",
		Secure:   c.Cookie.Secure,
		SameSite: c.Cookie.SameSite,
	}
}
