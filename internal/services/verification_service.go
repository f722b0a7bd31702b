package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/pkg/crypto"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/mail"
	"github.com/campusbridge/onboard/pkg/metrics"
)

const (
	defaultCodeTTL        = 10 * time.Minute
	defaultResendCooldown = 60 * time.Second
	defaultMaxAttempts    = 5
	verificationCodeSize  = 6
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithCodeTTL overrides how long an issued code stays valid.
func WithCodeTTL(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithResendCooldown overrides the minimum spacing between two codes.
func WithResendCooldown(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

// WithMaxAttempts caps mismatched submissions per code.
func WithMaxAttempts(n int) VerificationOption {
	return func(s *VerificationService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) VerificationOption {
	return func(s *VerificationService) {
		if gen != nil {
			s.generate = gen
		}
	}
}

// WithAppName sets the product name used in emails.
func WithAppName(name string) VerificationOption {
	return func(s *VerificationService) {
		if name != "" {
			s.appName = name
		}
	}
}

// VerificationService issues, checks and re-sends email verification codes.
type VerificationService struct {
	store       AccountStore
	mailer      mail.Mailer
	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
	appName     string
	now         func() time.Time
	generate    func() (string, error)
	log         *zap.Logger
}

// NewVerificationService constructs a verification service with the provided dependencies.
func NewVerificationService(store AccountStore, mailer mail.Mailer, opts ...VerificationOption) (*VerificationService, error) {
	if store == nil {
		return nil, errors.New("verification service: store is required")
	}

	service := &VerificationService{
		store:       store,
		mailer:      mailer,
		ttl:         defaultCodeTTL,
		cooldown:    defaultResendCooldown,
		maxAttempts: defaultMaxAttempts,
		appName:     "CampusBridge",
		now:         time.Now,
		generate: func() (string, error) {
			return crypto.GenerateNumericCode(verificationCodeSize)
		},
		log: logger.WithModule("verification"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CodeTTL reports the configured code lifetime.
func (s *VerificationService) CodeTTL() time.Duration {
	return s.ttl
}

// CooldownRemaining returns how long the account must wait before a new code
// may be issued. Zero means a code can be sent now.
func (s *VerificationService) CooldownRemaining(account *models.Account) time.Duration {
	if account == nil || account.VerificationSentAt == nil || s.cooldown <= 0 {
		return 0
	}
	remaining := account.VerificationSentAt.Add(s.cooldown).Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Issue replaces any pending code with a fresh one and emails it.
func (s *VerificationService) Issue(ctx context.Context, record models.AccountRecord) error {
	account := record.AccountBase()
	kind := record.Kind()

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("verification service: generate code: %w", err)
	}

	now := s.now()
	expires := now.Add(s.ttl)
	hash := crypto.HashToken(code)

	if err := s.store.UpdateFields(ctx, kind, account.ID, map[string]any{
		"verification_code_hash":  hash,
		"verification_expires_at": expires,
		"verification_sent_at":    now,
		"verification_attempts":   0,
	}); err != nil {
		return err
	}
	account.VerificationCodeHash = &hash
	account.VerificationExpiresAt = &expires
	account.VerificationSentAt = &now
	account.VerificationAttempts = 0

	metrics.VerificationEvents.WithLabelValues(string(kind), "issued").Inc()

	if s.mailer == nil {
		s.log.Warn("mailer not configured, verification code not delivered",
			zap.String("account_type", string(kind)),
			zap.String("account_id", account.ID))
		return nil
	}

	msg := verificationMessage(s.appName, account.Email, record.DisplayName(), code, s.ttl)
	if err := s.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Warn("smtp disabled, verification code not delivered",
				zap.String("account_type", string(kind)),
				zap.String("account_id", account.ID))
			return nil
		}
		metrics.VerificationEvents.WithLabelValues(string(kind), "mail_failed").Inc()
		s.log.Error("send verification email",
			zap.String("account_type", string(kind)),
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err))
		return ErrMailDelivery.WithInternal(err)
	}
	return nil
}

// Verify checks a submitted code. Verifying an already verified account is a
// successful no-op.
func (s *VerificationService) Verify(ctx context.Context, kind models.AccountKind, email, code string) (models.AccountRecord, error) {
	record, err := s.store.FindByEmail(ctx, kind, identity.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	account := record.AccountBase()

	if account.IsVerified {
		return record, nil
	}
	if !account.HasLiveCode() {
		return nil, ErrVerificationCodeMissing
	}

	now := s.now()
	if !crypto.EqualHash(*account.VerificationCodeHash, crypto.HashToken(code)) {
		return nil, s.recordMismatch(ctx, kind, account)
	}
	if account.VerificationExpiresAt == nil || !now.Before(*account.VerificationExpiresAt) {
		metrics.VerificationEvents.WithLabelValues(string(kind), "expired").Inc()
		return nil, ErrVerificationCodeExpired
	}

	consumed, err := s.store.ConsumeCode(ctx, kind, account.ID, *account.VerificationCodeHash, s.maxAttempts, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// a concurrent request verified, exhausted or replaced the code
		fresh, err := s.store.FindByID(ctx, kind, account.ID)
		if err != nil {
			return nil, err
		}
		if fresh.AccountBase().IsVerified {
			return fresh, nil
		}
		metrics.VerificationEvents.WithLabelValues(string(kind), "invalid").Inc()
		return nil, ErrVerificationCodeInvalid
	}
	account.IsVerified = true
	account.VerifiedAt = &now
	account.VerificationCodeHash = nil
	account.VerificationExpiresAt = nil
	account.VerificationAttempts = 0

	metrics.VerificationEvents.WithLabelValues(string(kind), "verified").Inc()
	s.log.Info("account verified", zap.String("account_type", string(kind)), zap.String("account_id", account.ID))
	return record, nil
}

// recordMismatch counts a wrong guess in the database so parallel guesses
// cannot share one read of the counter.
func (s *VerificationService) recordMismatch(ctx context.Context, kind models.AccountKind, account *models.Account) error {
	attempts, exhausted, err := s.store.RecordCodeMismatch(ctx, kind, account.ID, *account.VerificationCodeHash, s.maxAttempts)
	if err != nil {
		return err
	}
	if exhausted {
		metrics.VerificationEvents.WithLabelValues(string(kind), "exhausted").Inc()
		return ErrVerificationAttempts
	}
	if attempts > 0 {
		account.VerificationAttempts = attempts
	}
	metrics.VerificationEvents.WithLabelValues(string(kind), "invalid").Inc()
	return ErrVerificationCodeInvalid
}

// Resend issues a new code once the cool-down has elapsed, invalidating the
// previous one.
func (s *VerificationService) Resend(ctx context.Context, kind models.AccountKind, email string) (models.AccountRecord, error) {
	record, err := s.store.FindByEmail(ctx, kind, identity.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	account := record.AccountBase()

	if account.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if remaining := s.CooldownRemaining(account); remaining > 0 {
		metrics.VerificationEvents.WithLabelValues(string(kind), "cooldown").Inc()
		return nil, ErrResendCooldown.WithInternal(CooldownError{Remaining: int(math.Ceil(remaining.Seconds()))})
	}

	if err := s.Issue(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
