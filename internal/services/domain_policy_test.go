package services

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusbridge/onboard/internal/cache"
	"github.com/campusbridge/onboard/internal/database/testutil"
)

type fakeMXResolver struct {
	mu      sync.Mutex
	records map[string][]*net.MX
	errs    map[string]error
	block   bool
	calls   int
}

func (r *fakeMXResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	records, err := r.records[name], r.errs[name]
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return records, nil
}

func (r *fakeMXResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestDomainPolicyBlocklist(t *testing.T) {
	policy := NewDomainPolicy(DomainPolicyConfig{})
	ctx := context.Background()

	require.ErrorIs(t, policy.Check(ctx, "test@mailinator.com"), ErrBlockedDomain)
	require.ErrorIs(t, policy.Check(ctx, "test@inbox.Mailinator.com"), ErrBlockedDomain)
	require.NoError(t, policy.Check(ctx, "admin@springfield.edu"))
	require.ErrorIs(t, policy.Check(ctx, "no-domain"), ErrInvalidEmailDomain)

	custom := NewDomainPolicy(DomainPolicyConfig{BlockedDomains: []string{"spam.test"}})
	require.ErrorIs(t, custom.Check(ctx, "a@spam.test"), ErrBlockedDomain)
	require.NoError(t, custom.Check(ctx, "a@mailinator.com"))
}

func TestDomainPolicyMXLookup(t *testing.T) {
	resolver := &fakeMXResolver{
		records: map[string][]*net.MX{
			"springfield.edu": {{Host: "mx.springfield.edu.", Pref: 10}},
			"nullmx.test":     {{Host: ".", Pref: 0}},
		},
		errs: map[string]error{
			"flaky.test": &net.DNSError{Err: "server misbehaving", Name: "flaky.test", IsTemporary: true},
		},
	}
	policy := NewDomainPolicy(DomainPolicyConfig{CheckMX: true}, WithMXResolver(resolver))
	ctx := context.Background()

	require.NoError(t, policy.Check(ctx, "admin@springfield.edu"))
	require.ErrorIs(t, policy.Check(ctx, "admin@nowhere.test"), ErrInvalidEmailDomain)
	require.ErrorIs(t, policy.Check(ctx, "admin@nullmx.test"), ErrInvalidEmailDomain)
	require.ErrorIs(t, policy.Check(ctx, "admin@flaky.test"), ErrDomainCheckUnavailable)
}

func TestDomainPolicyMXTimeout(t *testing.T) {
	resolver := &fakeMXResolver{block: true}
	policy := NewDomainPolicy(DomainPolicyConfig{CheckMX: true, MXTimeout: 20 * time.Millisecond}, WithMXResolver(resolver))

	start := time.Now()
	err := policy.Check(context.Background(), "admin@slow.test")
	require.ErrorIs(t, err, ErrDomainCheckUnavailable)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestDomainPolicyCachesResults(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	resolver := &fakeMXResolver{records: map[string][]*net.MX{
		"springfield.edu": {{Host: "mx.springfield.edu.", Pref: 10}},
	}}
	policy := NewDomainPolicy(DomainPolicyConfig{CheckMX: true},
		WithMXResolver(resolver),
		WithDomainCache(cache.NewDatabaseStore(db)))
	ctx := context.Background()

	require.NoError(t, policy.Check(ctx, "a@springfield.edu"))
	require.NoError(t, policy.Check(ctx, "b@springfield.edu"))
	require.Equal(t, 1, resolver.Calls())

	require.ErrorIs(t, policy.Check(ctx, "a@gone.test"), ErrInvalidEmailDomain)
	require.ErrorIs(t, policy.Check(ctx, "b@gone.test"), ErrInvalidEmailDomain)
	require.Equal(t, 2, resolver.Calls())
}
