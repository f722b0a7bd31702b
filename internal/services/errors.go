package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/campusbridge/onboard/pkg/errors"
)

// Domain errors rendered to API consumers.
var (
	ErrAccountNotFound   = apperrors.New("ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)
	ErrEmailExists       = apperrors.New("EMAIL_EXISTS", "An account with this email already exists", http.StatusConflict)
	ErrPhoneExists       = apperrors.New("PHONE_EXISTS", "An account with this phone number already exists", http.StatusConflict)
	ErrVersionConflict   = apperrors.New("VERSION_CONFLICT", "The profile was modified by another request", http.StatusConflict)
	ErrInvalidIdentifier = apperrors.New("INVALID_IDENTIFIER", "Please enter a valid email address or phone number", http.StatusBadRequest)

	ErrVerificationCodeMissing = apperrors.New("VERIFICATION_CODE_MISSING", "No verification code is pending, request a new one", http.StatusBadRequest)
	ErrVerificationCodeInvalid = apperrors.New("VERIFICATION_CODE_INVALID", "Invalid verification code", http.StatusBadRequest)
	ErrVerificationCodeExpired = apperrors.New("VERIFICATION_CODE_EXPIRED", "Verification code has expired, request a new one", http.StatusBadRequest)
	ErrVerificationAttempts    = apperrors.New("VERIFICATION_ATTEMPTS_EXCEEDED", "Too many incorrect attempts, request a new code", http.StatusBadRequest)
	ErrAlreadyVerified         = apperrors.New("ALREADY_VERIFIED", "Account is already verified", http.StatusBadRequest)
	ErrResendCooldown          = apperrors.New("RESEND_COOLDOWN", "Please wait before requesting another code", http.StatusTooManyRequests)
	ErrMailDelivery            = apperrors.New("MAIL_DELIVERY_FAILED", "We could not send the email, please try again", http.StatusInternalServerError)

	ErrBlockedDomain          = apperrors.New("BLOCKED_DOMAIN", "Disposable or blocked email domains are not allowed", http.StatusBadRequest)
	ErrInvalidEmailDomain     = apperrors.New("INVALID_EMAIL_DOMAIN", "The email domain cannot receive mail", http.StatusBadRequest)
	ErrDomainCheckUnavailable = apperrors.New("DOMAIN_CHECK_UNAVAILABLE", "Unable to verify the email domain right now", http.StatusServiceUnavailable)

	ErrInvalidResetToken = apperrors.New("INVALID_RESET_TOKEN", "The reset link is invalid or has expired", http.StatusBadRequest)
)

// CooldownError carries the seconds a client must wait before retrying.
type CooldownError struct {
	Remaining int
}

func (e CooldownError) Error() string {
	return fmt.Sprintf("cooldown active for %ds", e.Remaining)
}

// RetryAfterSeconds is picked up by the response renderer.
func (e CooldownError) RetryAfterSeconds() int {
	return e.Remaining
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}
