package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName carries the access token for browser clients.
	CookieName = "authToken"
	// LegacyCookieName is still accepted on requests.
	LegacyCookieName = "token"
)

// CookieConfig controls how the auth cookie is written.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite string
}

// SessionCookie writes and clears the access token cookie.
type SessionCookie struct {
	cfg CookieConfig
}

// NewSessionCookie applies defaults to cfg.
func NewSessionCookie(cfg CookieConfig) *SessionCookie {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &SessionCookie{cfg: cfg}
}

// Set stores token on the response with an HttpOnly cookie.
func (s *SessionCookie) Set(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(s.sameSite())
	c.SetCookie(CookieName, token, int(ttl.Seconds()), s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
}

// Clear expires both the current and the legacy cookie.
func (s *SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(s.sameSite())
	c.SetCookie(CookieName, "", -1, s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
	c.SetCookie(LegacyCookieName, "", -1, s.cfg.Path, s.cfg.Domain, s.cfg.Secure, true)
}

func (s *SessionCookie) sameSite() http.SameSite {
	switch s.cfg.SameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
