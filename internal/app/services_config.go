package app

import (
	"strings"

	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/internal/services"
	"github.com/campusbridge/onboard/internal/storage"
)

// Region returns the phone number region used when no country code is given.
func (c IdentityConfig) Region() string {
	region := strings.ToUpper(strings.TrimSpace(c.DefaultRegion))
	if region == "" {
		return identity.DefaultRegion
	}
	return region
}

// Options converts VerificationConfig into service options. Zero values keep
// the service defaults.
func (c VerificationConfig) Options(appName string) []services.VerificationOption {
	opts := []services.VerificationOption{}
	if c.CodeTTL > 0 {
		opts = append(opts, services.WithCodeTTL(c.CodeTTL))
	}
	if c.ResendCooldown > 0 {
		opts = append(opts, services.WithResendCooldown(c.ResendCooldown))
	}
	if c.MaxAttempts > 0 {
		opts = append(opts, services.WithMaxAttempts(c.MaxAttempts))
	}
	if strings.TrimSpace(appName) != "" {
		opts = append(opts, services.WithAppName(appName))
	}
	return opts
}

// PolicyConfig converts DomainPolicyConfig for the services package. An empty
// blocklist falls back to the built-in disposable domain list.
func (c DomainPolicyConfig) PolicyConfig() services.DomainPolicyConfig {
	blocked := make([]string, 0, len(c.BlockedDomains))
	for _, domain := range c.BlockedDomains {
		if domain = strings.TrimSpace(domain); domain != "" {
			blocked = append(blocked, domain)
		}
	}
	if len(blocked) == 0 {
		blocked = services.DefaultBlockedDomains
	}
	return services.DomainPolicyConfig{
		BlockedDomains: blocked,
		CheckMX:        c.CheckMX,
		MXTimeout:      c.MXTimeout,
		MXCacheTTL:     c.MXCacheTTL,
	}
}

// UsesS3 reports whether uploads go to an S3 compatible bucket.
func (c StorageConfig) UsesS3() bool {
	return strings.EqualFold(strings.TrimSpace(c.Driver), "s3")
}

// S3Settings converts the S3 section for the storage package.
func (c StorageConfig) S3Settings() storage.S3Config {
	return storage.S3Config{
		Bucket:       c.S3.Bucket,
		Region:       c.S3.Region,
		Endpoint:     c.S3.Endpoint,
		AccessKey:    c.S3.AccessKey,
		SecretKey:    c.S3.SecretKey,
		PublicURL:    c.S3.PublicURL,
		UsePathStyle: c.S3.UsePathStyle,
	}
}
