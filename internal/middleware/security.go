package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// APIContentSecurityPolicy forbids every resource type; JSON responses never render.
	APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"
	// UploadContentSecurityPolicy lets uploaded images render inline and nothing else.
	UploadContentSecurityPolicy = "default-src 'none'; img-src 'self'; sandbox"

	hstsValue         = "max-age=31536000; includeSubDomains"
	uploadCacheHeader = "public, max-age=86400, immutable"
)

// SecurityOptions tunes SecurityHeaders for the deployment.
type SecurityOptions struct {
	// HSTS emits Strict-Transport-Security. Enable only behind TLS.
	HSTS bool
	// UploadsPrefix marks locally served media. Responses under it may be
	// embedded by the frontend origin and cached by browsers.
	UploadsPrefix string
}

// SecurityHeaders hardens responses. API payloads carry session data and
// are never cached; uploaded media is immutable because object keys are
// random.
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	uploads := strings.TrimRight(opts.UploadsPrefix, "/")
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if opts.HSTS {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		if uploads != "" && strings.HasPrefix(c.Request.URL.Path, uploads+"/") {
			h.Set("Content-Security-Policy", UploadContentSecurityPolicy)
			h.Set("Cross-Origin-Resource-Policy", "cross-origin")
			h.Set("Cache-Control", uploadCacheHeader)
			c.Next()
			return
		}

		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", APIContentSecurityPolicy)
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}
