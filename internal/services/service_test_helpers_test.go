package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/database/testutil"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/pkg/crypto"
	"github.com/campusbridge/onboard/pkg/mail"
)

type captureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *captureMailer) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages, "expected an email to be sent")
	return m.messages[len(m.messages)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceCodes hands out predictable verification codes.
type sequenceCodes struct {
	mu     sync.Mutex
	codes  []string
	issued []string
}

func (s *sequenceCodes) next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := "000000"
	if len(s.codes) > 0 {
		code, s.codes = s.codes[0], s.codes[1:]
	}
	s.issued = append(s.issued, code)
	return code, nil
}

// countingStore records every call reaching the wrapped store.
type countingStore struct {
	AccountStore
	mu    sync.Mutex
	calls []string
}

func (s *countingStore) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *countingStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *countingStore) FindByID(ctx context.Context, kind models.AccountKind, id string) (models.AccountRecord, error) {
	s.record("FindByID")
	return s.AccountStore.FindByID(ctx, kind, id)
}

func (s *countingStore) UpdateSection(ctx context.Context, kind models.AccountKind, id, column string, value any, expectedVersion int64) (models.AccountRecord, error) {
	s.record("UpdateSection")
	return s.AccountStore.UpdateSection(ctx, kind, id, column, value, expectedVersion)
}

func (s *countingStore) UpdateFields(ctx context.Context, kind models.AccountKind, id string, fields map[string]any) error {
	s.record("UpdateFields")
	return s.AccountStore.UpdateFields(ctx, kind, id, fields)
}

func openAccountStore(t *testing.T) (*GormAccountStore, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewGormAccountStore(db)
	require.NoError(t, err)
	return store, db
}

func createInstitute(t *testing.T, store AccountStore, email, phone, password string, verified bool) *models.Institute {
	t.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	record := &models.Institute{
		Account: models.Account{
			Email:      strings.ToLower(email),
			Phone:      phone,
			Password:   hashed,
			IsVerified: verified,
		},
		InstituteName: "Springfield College",
	}
	require.NoError(t, store.Create(context.Background(), record))
	return record
}
