package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusbridge/onboard/internal/auth"
	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/pkg/crypto"
	apperrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/metrics"
)

// MinPasswordLength applies to signup and password reset.
const MinPasswordLength = 8

// SignupInput carries the fields collected on the signup form.
type SignupInput struct {
	Kind     models.AccountKind
	Name     string
	Email    string
	Phone    string
	Password string
}

// SignupResult reports the account and whether it was newly created.
type SignupResult struct {
	Account models.AccountRecord
	Created bool
	// CodeSent is false when an unverified account re-submitted the form
	// inside the resend cool-down.
	CodeSent bool
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	Account   models.AccountRecord
}

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AccountService handles signup and login for both account kinds.
type AccountService struct {
	store        AccountStore
	resolver     *identity.Resolver
	verification *VerificationService
	tokens       *auth.JWTService
	now          func() time.Time
	log          *zap.Logger
}

// NewAccountService wires the account service.
func NewAccountService(store AccountStore, resolver *identity.Resolver, verification *VerificationService, tokens *auth.JWTService, opts ...AccountOption) (*AccountService, error) {
	if store == nil {
		return nil, errors.New("account service: store is required")
	}
	if resolver == nil {
		return nil, errors.New("account service: identity resolver is required")
	}
	if verification == nil {
		return nil, errors.New("account service: verification service is required")
	}
	if tokens == nil {
		return nil, errors.New("account service: jwt service is required")
	}

	svc := &AccountService{
		store:        store,
		resolver:     resolver,
		verification: verification,
		tokens:       tokens,
		now:          time.Now,
		log:          logger.WithModule("accounts"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Signup creates an unverified account and sends its first verification
// code. Re-submitting for an unverified account only re-issues the code;
// verified duplicates are rejected.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	if !in.Kind.Valid() {
		return SignupResult{}, apperrors.NewBadRequest("Unknown account type")
	}

	email := identity.NormalizeEmail(in.Email)
	fields := map[string]string{}
	if !identity.IsEmail(email) {
		fields["email"] = "email must be a valid email address"
	}
	phone, ok := s.resolver.NormalizePhone(in.Phone)
	if !ok {
		fields["phone"] = "phone must be a valid phone number"
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields["name"] = "name is required"
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if len(fields) > 0 {
		return SignupResult{}, apperrors.NewValidation(fields)
	}

	existing, err := s.store.FindByEmail(ctx, in.Kind, email)
	switch {
	case err == nil:
		return s.resubmit(ctx, existing)
	case !errors.Is(err, ErrAccountNotFound):
		return SignupResult{}, err
	}

	if _, err := s.store.FindByPhone(ctx, in.Kind, phone); err == nil {
		metrics.Signups.WithLabelValues(string(in.Kind), "duplicate").Inc()
		return SignupResult{}, ErrPhoneExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return SignupResult{}, err
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return SignupResult{}, fmt.Errorf("account service: hash password: %w", err)
	}

	record := newAccountRecord(in.Kind, name, email, phone, hash)
	if err := s.store.Create(ctx, record); err != nil {
		if isUniqueConstraintError(err) {
			return SignupResult{}, s.duplicateError(ctx, in.Kind, email)
		}
		return SignupResult{}, err
	}

	if err := s.verification.Issue(ctx, record); err != nil {
		// Without a delivered code the account is unusable, so let the user retry from scratch.
		if delErr := s.store.Delete(ctx, in.Kind, record.AccountBase().ID); delErr != nil {
			s.log.Error("rollback signup", zap.String("account_id", record.AccountBase().ID), zap.Error(delErr))
		}
		metrics.Signups.WithLabelValues(string(in.Kind), "mail_failed").Inc()
		return SignupResult{}, err
	}

	metrics.Signups.WithLabelValues(string(in.Kind), "created").Inc()
	s.log.Info("account created",
		zap.String("account_type", string(in.Kind)),
		zap.String("account_id", record.AccountBase().ID))
	return SignupResult{Account: record, Created: true, CodeSent: true}, nil
}

// resubmit re-issues the code for an unverified account. The stored
// credentials are left alone: the caller has not proven it owns the email.
func (s *AccountService) resubmit(ctx context.Context, record models.AccountRecord) (SignupResult, error) {
	account := record.AccountBase()
	kind := record.Kind()
	if account.IsVerified {
		metrics.Signups.WithLabelValues(string(kind), "duplicate").Inc()
		return SignupResult{}, ErrEmailExists
	}

	if s.verification.CooldownRemaining(account) > 0 {
		return SignupResult{Account: record}, nil
	}
	if err := s.verification.Issue(ctx, record); err != nil {
		return SignupResult{}, err
	}
	metrics.Signups.WithLabelValues(string(kind), "resubmitted").Inc()
	return SignupResult{Account: record, CodeSent: true}, nil
}

func (s *AccountService) duplicateError(ctx context.Context, kind models.AccountKind, email string) error {
	if _, err := s.store.FindByEmail(ctx, kind, email); err == nil {
		return ErrEmailExists
	}
	return ErrPhoneExists
}

// Login authenticates with an email address or phone number. Unknown
// identifiers and wrong passwords share one generic error.
func (s *AccountService) Login(ctx context.Context, kind models.AccountKind, identifier, password string) (LoginResult, error) {
	cred := s.resolver.Resolve(identifier)
	if !cred.IsValid {
		metrics.AuthAttempts.WithLabelValues(string(kind), "failure").Inc()
		return LoginResult{}, ErrInvalidIdentifier.WithFields(map[string]string{"identifier": cred.Error})
	}

	var (
		record models.AccountRecord
		err    error
	)
	if cred.Type == identity.CredentialEmail {
		record, err = s.store.FindByEmail(ctx, kind, cred.LookupValue())
	} else {
		record, err = s.store.FindByPhone(ctx, kind, cred.LookupValue())
	}
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			metrics.AuthAttempts.WithLabelValues(string(kind), "failure").Inc()
			return LoginResult{}, apperrors.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	account := record.AccountBase()
	if !crypto.VerifyPassword(account.Password, password) {
		metrics.AuthAttempts.WithLabelValues(string(kind), "failure").Inc()
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}
	if !account.IsVerified {
		metrics.AuthAttempts.WithLabelValues(string(kind), "unverified").Inc()
		return LoginResult{}, apperrors.ErrEmailNotVerified
	}

	token, err := s.tokens.GenerateAccessToken(kind, account.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("account service: issue token: %w", err)
	}

	now := s.now()
	if err := s.store.UpdateFields(ctx, kind, account.ID, map[string]any{"last_login_at": now}); err != nil {
		s.log.Warn("record last login", zap.String("account_id", account.ID), zap.Error(err))
	} else {
		account.LastLoginAt = &now
	}

	metrics.AuthAttempts.WithLabelValues(string(kind), "success").Inc()
	return LoginResult{Token: token, ExpiresIn: s.tokens.TTL(), Account: record}, nil
}

// Get loads an account by id.
func (s *AccountService) Get(ctx context.Context, kind models.AccountKind, id string) (models.AccountRecord, error) {
	return s.store.FindByID(ctx, kind, id)
}

func newAccountRecord(kind models.AccountKind, name, email, phone, hash string) models.AccountRecord {
	account := models.Account{Email: email, Phone: phone, Password: hash}
	if kind == models.KindInstitute {
		return &models.Institute{Account: account, InstituteName: name}
	}
	return &models.Student{Account: account, FullName: name}
}
