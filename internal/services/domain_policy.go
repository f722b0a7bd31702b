package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusbridge/onboard/internal/cache"
	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/metrics"
)

const (
	defaultMXTimeout  = 3 * time.Second
	defaultMXCacheTTL = 6 * time.Hour
	mxCachePrefix     = "mx:"
)

// DefaultBlockedDomains lists well known disposable mailbox providers.
var DefaultBlockedDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"temp-mail.org",
	"yopmail.com",
	"trashmail.com",
	"getnada.com",
	"dispostable.com",
	"sharklasers.com",
}

// MXResolver is satisfied by *net.Resolver.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// DomainPolicyConfig configures signup email checks.
type DomainPolicyConfig struct {
	BlockedDomains []string
	CheckMX        bool
	MXTimeout      time.Duration
	MXCacheTTL     time.Duration
}

// DomainPolicy rejects disposable domains and domains that cannot receive mail.
type DomainPolicy struct {
	blocked  map[string]struct{}
	checkMX  bool
	timeout  time.Duration
	cacheTTL time.Duration
	resolver MXResolver
	cache    cache.Store
	log      *zap.Logger
}

// DomainPolicyOption customises a DomainPolicy.
type DomainPolicyOption func(*DomainPolicy)

// WithMXResolver replaces the DNS resolver.
func WithMXResolver(resolver MXResolver) DomainPolicyOption {
	return func(p *DomainPolicy) {
		if resolver != nil {
			p.resolver = resolver
		}
	}
}

// WithDomainCache memoises MX results in store.
func WithDomainCache(store cache.Store) DomainPolicyOption {
	return func(p *DomainPolicy) {
		p.cache = store
	}
}

// NewDomainPolicy builds the policy.
func NewDomainPolicy(cfg DomainPolicyConfig, opts ...DomainPolicyOption) *DomainPolicy {
	blocked := cfg.BlockedDomains
	if blocked == nil {
		blocked = DefaultBlockedDomains
	}
	policy := &DomainPolicy{
		blocked:  make(map[string]struct{}, len(blocked)),
		checkMX:  cfg.CheckMX,
		timeout:  cfg.MXTimeout,
		cacheTTL: cfg.MXCacheTTL,
		resolver: net.DefaultResolver,
		log:      logger.WithModule("domain_policy"),
	}
	for _, domain := range blocked {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			policy.blocked[domain] = struct{}{}
		}
	}
	if policy.timeout <= 0 {
		policy.timeout = defaultMXTimeout
	}
	if policy.cacheTTL <= 0 {
		policy.cacheTTL = defaultMXCacheTTL
	}
	for _, opt := range opts {
		opt(policy)
	}
	return policy
}

// Check validates the domain of email. Syntax errors are left to request
// validation; only the domain is judged here.
func (p *DomainPolicy) Check(ctx context.Context, email string) error {
	domain := identity.EmailDomain(email)
	if domain == "" {
		return ErrInvalidEmailDomain
	}

	if p.isBlocked(domain) {
		metrics.DomainChecks.WithLabelValues("blocked").Inc()
		return ErrBlockedDomain
	}

	if !p.checkMX {
		metrics.DomainChecks.WithLabelValues("allowed").Inc()
		return nil
	}

	if ok, hit := p.cached(ctx, domain); hit {
		metrics.DomainChecks.WithLabelValues("cached").Inc()
		if !ok {
			return ErrInvalidEmailDomain
		}
		return nil
	}

	ok, err := p.lookup(ctx, domain)
	if err != nil {
		metrics.DomainChecks.WithLabelValues("unavailable").Inc()
		p.log.Warn("mx lookup failed", zap.String("domain", domain), zap.Error(err))
		return ErrDomainCheckUnavailable.WithInternal(err)
	}
	p.remember(ctx, domain, ok)

	if !ok {
		metrics.DomainChecks.WithLabelValues("no_mx").Inc()
		return ErrInvalidEmailDomain
	}
	metrics.DomainChecks.WithLabelValues("allowed").Inc()
	return nil
}

// isBlocked matches the domain and every parent domain.
func (p *DomainPolicy) isBlocked(domain string) bool {
	for {
		if _, ok := p.blocked[domain]; ok {
			return true
		}
		dot := strings.IndexByte(domain, '.')
		if dot == -1 {
			return false
		}
		domain = domain[dot+1:]
	}
}

// lookup reports whether domain publishes a usable MX record. Transient DNS
// failures are returned as errors; NXDOMAIN and empty answers are a definite no.
func (p *DomainPolicy) lookup(ctx context.Context, domain string) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	records, err := p.resolver.LookupMX(lookupCtx, domain)
	metrics.MXLookupLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}

	for _, mx := range records {
		// A single "." host is the RFC 7505 null MX.
		if mx != nil && strings.TrimSuffix(mx.Host, ".") != "" {
			return true, nil
		}
	}
	return false, nil
}

func (p *DomainPolicy) cached(ctx context.Context, domain string) (bool, bool) {
	if p.cache == nil {
		return false, false
	}
	value, ok, err := p.cache.Get(ctx, mxCachePrefix+domain)
	if err != nil {
		p.log.Debug("mx cache read failed", zap.String("domain", domain), zap.Error(err))
		return false, false
	}
	if !ok {
		return false, false
	}
	return string(value) == "1", true
}

func (p *DomainPolicy) remember(ctx context.Context, domain string, ok bool) {
	if p.cache == nil {
		return
	}
	value := []byte("0")
	if ok {
		value = []byte("1")
	}
	if err := p.cache.Set(ctx, mxCachePrefix+domain, value, p.cacheTTL); err != nil {
		p.log.Debug("mx cache write failed", zap.String("domain", domain), zap.Error(err))
	}
}
