package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusbridge/onboard/pkg/crypto"
	"github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/response"
)

const (
	// CSRFCookieName carries the double-submit token to the frontend.
	CSRFCookieName = "onboard_csrf"
	// CSRFHeaderName is echoed back by the frontend on mutating requests.
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenLength  = 48
	csrfCookieMaxAge = 12 * 60 * 60
)

// CSRFOptions mirrors the auth cookie so both cookies share scope.
type CSRFOptions struct {
	Domain string
	// Secure forces the Secure attribute; otherwise it follows the request scheme.
	Secure bool
}

type csrfGuard struct {
	opts CSRFOptions
	log  *zap.Logger
}

// CSRF protects cookie-authenticated requests with a double-submit token.
// Bearer requests cannot be forged by a browser and pass through.
func CSRF(opts CSRFOptions) gin.HandlerFunc {
	g := &csrfGuard{opts: opts, log: logger.WithModule("csrf")}
	return g.handle
}

func (g *csrfGuard) handle(c *gin.Context) {
	if c.Request.Method == http.MethodOptions || hasBearerHeader(c) {
		c.Next()
		return
	}

	token, err := g.token(c)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		c.Abort()
		return
	}

	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
		c.Header(CSRFHeaderName, token)
	default:
		presented := strings.TrimSpace(c.GetHeader(CSRFHeaderName))
		if !tokensMatch(token, presented) {
			g.log.Warn("csrf token mismatch",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Bool("header_present", presented != ""),
			)
			response.Error(c, errors.ErrCSRFInvalid)
			c.Abort()
			return
		}
	}
	c.Next()
}

// token returns the client's existing token or mints one. The cookie is
// rewritten either way to slide its expiry.
func (g *csrfGuard) token(c *gin.Context) (string, error) {
	token, err := c.Cookie(CSRFCookieName)
	if err != nil || token == "" {
		if token, err = crypto.GenerateToken(csrfTokenLength); err != nil {
			return "", err
		}
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.opts.Domain,
		MaxAge:   csrfCookieMaxAge,
		Secure:   g.opts.Secure || isSecureRequest(c.Request),
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func tokensMatch(expected, presented string) bool {
	if expected == "" || len(expected) != len(presented) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

func hasBearerHeader(c *gin.Context) bool {
	scheme, _, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	return ok && strings.EqualFold(scheme, "Bearer")
}
