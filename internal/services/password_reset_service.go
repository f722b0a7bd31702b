package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/pkg/crypto"
	apperrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/mail"
)

const defaultResetTokenTTL = time.Hour

// PasswordResetOption customises the PasswordResetService.
type PasswordResetOption func(*PasswordResetService)

// WithResetClock injects a custom time source.
func WithResetClock(clock func() time.Time) PasswordResetOption {
	return func(s *PasswordResetService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithResetTokenTTL overrides how long a reset link stays valid.
func WithResetTokenTTL(d time.Duration) PasswordResetOption {
	return func(s *PasswordResetService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithResetAppName sets the product name used in emails.
func WithResetAppName(name string) PasswordResetOption {
	return func(s *PasswordResetService) {
		if name != "" {
			s.appName = name
		}
	}
}

// PasswordResetService issues and redeems one-time password reset links.
type PasswordResetService struct {
	db          *gorm.DB
	accounts    AccountStore
	mailer      mail.Mailer
	frontendURL string
	appName     string
	ttl         time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewPasswordResetService constructs the service. frontendURL is the base of
// the link placed in reset emails.
func NewPasswordResetService(db *gorm.DB, accounts AccountStore, mailer mail.Mailer, frontendURL string, opts ...PasswordResetOption) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	if accounts == nil {
		return nil, errors.New("password reset service: account store is required")
	}

	svc := &PasswordResetService{
		db:          db,
		accounts:    accounts,
		mailer:      mailer,
		frontendURL: strings.TrimRight(strings.TrimSpace(frontendURL), "/"),
		appName:     "CampusBridge",
		ttl:         defaultResetTokenTTL,
		now:         time.Now,
		log:         logger.WithModule("password_reset"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestReset emails a reset link when the account exists. Unknown
// addresses are not reported so callers always answer the same way.
func (s *PasswordResetService) RequestReset(ctx context.Context, kind models.AccountKind, email string) error {
	if !kind.Valid() {
		return apperrors.NewBadRequest("Unknown account type")
	}

	record, err := s.accounts.FindByEmail(ctx, kind, identity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.log.Debug("reset requested for unknown email", zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return err
	}
	account := record.AccountBase()

	token, err := crypto.GenerateToken(32)
	if err != nil {
		return fmt.Errorf("password reset service: generate token: %w", err)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_type = ? AND account_id = ? AND used_at IS NULL", kind, account.ID).
			Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetToken{
			AccountType: kind,
			AccountID:   account.ID,
			TokenHash:   crypto.HashToken(token),
			ExpiresAt:   now.Add(s.ttl),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("password reset service: store token: %w", err)
	}

	if s.mailer == nil {
		s.log.Warn("mailer not configured, reset link not delivered", zap.String("account_id", account.ID))
		return nil
	}
	msg := passwordResetMessage(s.appName, account.Email, s.resetLink(token, kind), s.ttl)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error("send password reset email",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err))
	}
	return nil
}

// ResetPassword redeems token and stores the new password hash.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if len(newPassword) < MinPasswordLength {
		return apperrors.NewValidation(map[string]string{
			"newPassword": fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
		})
	}

	var reset models.PasswordResetToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", crypto.HashToken(token)).Take(&reset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("password reset service: load token: %w", err)
	}

	now := s.now()
	if reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("password reset service: hash password: %w", err)
	}

	account := models.NewRecord(reset.AccountType)
	if account == nil {
		return ErrInvalidResetToken
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", reset.ID).
			Update("used_at", now)
		if res.Error != nil {
			return fmt.Errorf("password reset service: consume token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}

		res = tx.Model(account).Where("id = ?", reset.AccountID).Update("password", hash)
		if res.Error != nil {
			return fmt.Errorf("password reset service: update password: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("password reset",
		zap.String("account_type", string(reset.AccountType)),
		zap.String("account_id", reset.AccountID))
	return nil
}

// PurgeExpired removes tokens that expired or were used before cutoff.
func (s *PasswordResetService) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)", cutoff, cutoff).
		Delete(&models.PasswordResetToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("password reset service: purge tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *PasswordResetService) resetLink(token string, kind models.AccountKind) string {
	query := url.Values{}
	query.Set("token", token)
	query.Set("type", string(kind))
	return s.frontendURL + "/reset-password?" + query.Encode()
}
