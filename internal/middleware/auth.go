package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/campusbridge/onboard/internal/auth"
	"github.com/campusbridge/onboard/internal/models"
	apperrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/response"
)

const (
	CtxClaimsKey      = "authClaims"
	CtxAccountIDKey   = "accountID"
	CtxAccountTypeKey = "accountType"
	CtxAccountKey     = "account"
)

// ErrWrongAccountType rejects tokens issued for the other side of the platform.
var ErrWrongAccountType = apperrors.ErrForbidden.WithMessage("This token is not valid for this account type")

// AccountLoader reloads the authenticated account on every request.
type AccountLoader interface {
	FindByID(ctx context.Context, kind models.AccountKind, id string) (models.AccountRecord, error)
}

// Auth enforces JWT authentication for one account kind. The token is read
// from the Authorization header, then from the auth cookies. Unverified
// accounts are refused.
func Auth(jwt *iauth.JWTService, kind models.AccountKind, accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.AccountType != kind {
			response.Error(c, ErrWrongAccountType)
			c.Abort()
			return
		}

		record, err := accounts.FindByID(c.Request.Context(), kind, claims.AccountID)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.StatusCode < 500 {
				// A deleted account looks like any other bad token.
				response.Error(c, apperrors.ErrUnauthorized)
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		if !record.AccountBase().IsVerified {
			response.Error(c, apperrors.ErrEmailNotVerified)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxAccountIDKey, claims.AccountID)
		c.Set(CtxAccountTypeKey, kind)
		c.Set(CtxAccountKey, record)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		if token := strings.TrimSpace(authz[7:]); token != "" {
			return token
		}
	}
	for _, name := range []string{iauth.CookieName, iauth.LegacyCookieName} {
		if value, err := c.Cookie(name); err == nil && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
