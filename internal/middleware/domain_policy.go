package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/campusbridge/onboard/pkg/response"
)

// EmailDomainChecker validates the domain of an address before signup.
type EmailDomainChecker interface {
	Check(ctx context.Context, email string) error
}

type emailEnvelope struct {
	Email string `json:"email"`
}

// DomainPolicy rejects signups whose email domain is blocked or cannot
// receive mail. The body is cached on the context so handlers can bind it
// again with ShouldBindBodyWith. Malformed bodies and missing emails are left
// to the handler's own validation.
func DomainPolicy(checker EmailDomainChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.Next()
			return
		}

		var payload emailEnvelope
		if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil {
			c.Next()
			return
		}
		email := strings.TrimSpace(payload.Email)
		if email == "" || !strings.Contains(email, "@") {
			c.Next()
			return
		}

		if err := checker.Check(c.Request.Context(), email); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
