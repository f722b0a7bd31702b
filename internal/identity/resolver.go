// Package identity classifies raw login input as an email address or a phone
// number and normalizes it for account lookups.
package identity

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a resolver is built without an explicit region.
const DefaultRegion = "IN"

// CredentialType identifies which kind of identifier was supplied.
type CredentialType string

const (
	CredentialEmail CredentialType = "email"
	CredentialPhone CredentialType = "phone"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var phoneStripper = strings.NewReplacer(" ", "", "\t", "", "-", "", ".", "", "(", "", ")", "")

// Credential is the result of resolving a login identifier. It is never persisted.
type Credential struct {
	Type            CredentialType `json:"type"`
	IsValid         bool           `json:"is_valid"`
	NormalizedValue string         `json:"normalized_value,omitempty"`
	// E164 holds the storage form of a phone number, e.g. +919876543210.
	E164  string `json:"e164,omitempty"`
	Error string `json:"error,omitempty"`
}

// LookupValue returns the value accounts are stored under.
func (c Credential) LookupValue() string {
	if c.Type == CredentialPhone {
		return c.E164
	}
	return c.NormalizedValue
}

// Resolver resolves identifiers against a fixed default region.
type Resolver struct {
	region string
}

// NewResolver builds a resolver; an empty region falls back to DefaultRegion.
func NewResolver(region string) *Resolver {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Resolver{region: region}
}

// Region reports the default region in use.
func (r *Resolver) Region() string {
	return r.region
}

// Resolve classifies raw. It never panics and reports failures through
// Credential.IsValid and Credential.Error.
func (r *Resolver) Resolve(raw string) Credential {
	return Resolve(raw, r.region)
}

// NormalizePhone parses a phone number and returns its E.164 form.
func (r *Resolver) NormalizePhone(raw string) (string, bool) {
	cred := resolvePhone(raw, r.region)
	return cred.E164, cred.IsValid
}

// Resolve classifies raw against region.
func Resolve(raw, region string) Credential {
	trimmed := strings.TrimSpace(raw)
	if strings.Contains(trimmed, "@") {
		return resolveEmail(trimmed)
	}
	if region == "" {
		region = DefaultRegion
	}
	return resolvePhone(trimmed, strings.ToUpper(region))
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsEmail reports whether raw is a syntactically valid address.
func IsEmail(raw string) bool {
	return emailPattern.MatchString(strings.TrimSpace(raw))
}

// EmailDomain returns the lower-cased domain part of an address.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at == -1 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

func resolveEmail(value string) Credential {
	cred := Credential{Type: CredentialEmail}
	if !emailPattern.MatchString(value) {
		cred.Error = "Please enter a valid email address"
		return cred
	}
	cred.IsValid = true
	cred.NormalizedValue = NormalizeEmail(value)
	return cred
}

func resolvePhone(value, region string) Credential {
	cred := Credential{Type: CredentialPhone}

	cleaned := phoneStripper.Replace(value)
	if cleaned == "" {
		cred.Error = "Please enter an email address or phone number"
		return cred
	}

	num, err := phonenumbers.Parse(cleaned, region)
	if err != nil {
		cred.Error = "Please enter a valid phone number"
		return cred
	}
	if !phonenumbers.IsValidNumber(num) {
		cred.Error = "Please enter a valid phone number for region " + region
		return cred
	}

	cred.IsValid = true
	cred.NormalizedValue = phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
	cred.E164 = phonenumbers.Format(num, phonenumbers.E164)
	return cred
}
