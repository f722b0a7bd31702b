package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// AccountKind distinguishes the two sides of the platform.
type AccountKind string

const (
	KindInstitute AccountKind = "institute"
	KindStudent   AccountKind = "student"
)

// AccountKinds lists every supported kind in a stable order.
var AccountKinds = []AccountKind{KindInstitute, KindStudent}

// ParseAccountKind accepts singular or plural forms ("student", "students").
func ParseAccountKind(raw string) (AccountKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "institute", "institutes":
		return KindInstitute, true
	case "student", "students":
		return KindStudent, true
	default:
		return "", false
	}
}

// Valid reports whether k is a known kind.
func (k AccountKind) Valid() bool {
	return k == KindInstitute || k == KindStudent
}

// Plural is the route segment for the kind.
func (k AccountKind) Plural() string {
	return string(k) + "s"
}

// Account holds the identity and verification state shared by institutes and
// students. It is embedded by both record types.
type Account struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null;size:320" json:"email"`
	Phone    string `gorm:"uniqueIndex;not null;size:32" json:"phone"`
	Password string `gorm:"not null" json:"-"`

	IsVerified            bool       `gorm:"not null;default:false" json:"is_verified"`
	VerificationCodeHash  *string    `gorm:"size:64" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	VerificationSentAt    *time.Time `json:"-"`
	VerificationAttempts  int        `gorm:"not null;default:0" json:"-"`
	VerifiedAt            *time.Time `json:"verified_at,omitempty"`

	// Version increases on every section write and backs If-Match checks.
	Version int64 `gorm:"not null;default:1" json:"version"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// BeforeCreate assigns the identifier and the initial row version.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.Version == 0 {
		a.Version = 1
	}
	return a.BaseModel.BeforeCreate(tx)
}

// HasLiveCode reports whether a verification code is stored.
func (a *Account) HasLiveCode() bool {
	return a.VerificationCodeHash != nil && *a.VerificationCodeHash != ""
}

// AccountBase exposes the embedded account to code that works across kinds.
func (a *Account) AccountBase() *Account {
	return a
}

// AccountRecord is implemented by Institute and Student.
type AccountRecord interface {
	Kind() AccountKind
	AccountBase() *Account
	DisplayName() string
	// SectionJSON returns the stored JSON for a section column, or nil when unset.
	SectionJSON(name string) []byte
}

// NewRecord returns an empty record for kind.
func NewRecord(kind AccountKind) AccountRecord {
	switch kind {
	case KindInstitute:
		return &Institute{}
	case KindStudent:
		return &Student{}
	default:
		return nil
	}
}
