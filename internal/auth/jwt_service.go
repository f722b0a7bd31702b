package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campusbridge/onboard/internal/models"
)

// DefaultAccessTokenTTL applies when the configured lifetime is not positive.
const DefaultAccessTokenTTL = 24 * time.Hour

// clockSkew tolerates drift between API replicas.
const clockSkew = 30 * time.Second

// ErrInvalidAccountClaims marks tokens that verify but do not name an account.
var ErrInvalidAccountClaims = errors.New("jwt: token does not identify an account")

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims are the session claims. uid and typ identify the account; aud
// repeats the kind so other verifiers can scope the token too.
type Claims struct {
	AccountID   string             `json:"uid"`
	AccountType models.AccountKind `json:"typ"`
	jwt.RegisteredClaims
}

// Audience is the aud value stamped on tokens for kind.
func Audience(kind models.AccountKind) string {
	return "onboard:" + kind.Plural()
}

// JWTService signs and verifies HS256 session tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTService builds a service; only the secret is mandatory.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	svc := &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		now:    cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(svc.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	svc.parser = jwt.NewParser(opts...)
	return svc, nil
}

// TTL reports the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateAccessToken signs a session token for the account.
func (s *JWTService) GenerateAccessToken(kind models.AccountKind, accountID string) (string, error) {
	if accountID == "" {
		return "", errors.New("jwt: account id is required")
	}
	if !kind.Valid() {
		return "", fmt.Errorf("jwt: unknown account type %q", kind)
	}

	now := s.now()
	claims := &Claims{
		AccountID:   accountID,
		AccountType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{Audience(kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies signature, issuer and lifetime, then checks
// that the account claims agree with each other. Errors wrap the jwt
// package sentinels (jwt.ErrTokenExpired and friends).
func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("jwt: %w", jwt.ErrTokenMalformed)
	}

	var claims Claims
	if _, err := s.parser.ParseWithClaims(token, &claims, s.key); err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if claims.AccountID == "" || !claims.AccountType.Valid() {
		return nil, ErrInvalidAccountClaims
	}
	if len(claims.Audience) > 0 && !slices.Contains(claims.Audience, Audience(claims.AccountType)) {
		return nil, fmt.Errorf("jwt: %w", jwt.ErrTokenInvalidAudience)
	}
	return &claims, nil
}

func (s *JWTService) key(*jwt.Token) (any, error) {
	return s.secret, nil
}
