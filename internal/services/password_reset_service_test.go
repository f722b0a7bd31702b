package services

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/pkg/crypto"
	apperrors "github.com/campusbridge/onboard/pkg/errors"
)

var resetLinkPattern = regexp.MustCompile(`https://app\.example\.com/reset-password\?\S+`)

func newResetFixture(t *testing.T) (*PasswordResetService, *GormAccountStore, *captureMailer, *testClock) {
	t.Helper()

	store, db := openAccountStore(t)
	mailer := &captureMailer{}
	clock := newTestClock()
	svc, err := NewPasswordResetService(db, store, mailer, "https://app.example.com/", WithResetClock(clock.Now))
	require.NoError(t, err)
	return svc, store, mailer, clock
}

func resetTokenFrom(t *testing.T, body string) (string, string) {
	t.Helper()
	link := resetLinkPattern.FindString(body)
	require.NotEmpty(t, link, "reset link missing from %q", body)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("token"), parsed.Query().Get("type")
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	svc, _, mailer, _ := newResetFixture(t)

	require.NoError(t, svc.RequestReset(context.Background(), models.KindStudent, "ghost@example.com"))
	require.Zero(t, mailer.count())
}

func TestPasswordResetFlow(t *testing.T) {
	svc, store, mailer, _ := newResetFixture(t)
	ctx := context.Background()
	account := createInstitute(t, store, "reset@springfield.edu", "+919876543210", "password123", true)

	require.NoError(t, svc.RequestReset(ctx, models.KindInstitute, "Reset@Springfield.edu"))
	token, kind := resetTokenFrom(t, mailer.last(t).Body)
	require.NotEmpty(t, token)
	require.Equal(t, "institute", kind)

	require.NoError(t, svc.ResetPassword(ctx, token, "new-password-1"))

	record, err := store.FindByID(ctx, models.KindInstitute, account.ID)
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(record.AccountBase().Password, "new-password-1"))
	require.False(t, crypto.VerifyPassword(record.AccountBase().Password, "password123"))

	require.ErrorIs(t, svc.ResetPassword(ctx, token, "another-password"), ErrInvalidResetToken)
}

func TestPasswordResetKeepsTokenWhenPasswordWriteFails(t *testing.T) {
	store, db := openAccountStore(t)
	mailer := &captureMailer{}
	svc, err := NewPasswordResetService(db, store, mailer, "https://app.example.com/", WithResetClock(newTestClock().Now))
	require.NoError(t, err)

	ctx := context.Background()
	account := createInstitute(t, store, "atomic@springfield.edu", "+919876543210", "password123", true)
	require.NoError(t, svc.RequestReset(ctx, models.KindInstitute, "atomic@springfield.edu"))
	token, _ := resetTokenFrom(t, mailer.last(t).Body)

	const hook = "test:fail_password"
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(hook, func(tx *gorm.DB) {
		if fields, ok := tx.Statement.Dest.(map[string]any); ok {
			if _, hit := fields["password"]; hit {
				_ = tx.AddError(errors.New("disk full"))
			}
		}
	}))

	err = svc.ResetPassword(ctx, token, "new-password-1")
	require.ErrorContains(t, err, "disk full")

	var stored models.PasswordResetToken
	require.NoError(t, db.Where("account_id = ?", account.ID).Take(&stored).Error)
	require.Nil(t, stored.UsedAt)

	require.NoError(t, db.Callback().Update().Remove(hook))
	require.NoError(t, svc.ResetPassword(ctx, token, "new-password-1"))

	record, err := store.FindByID(ctx, models.KindInstitute, account.ID)
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(record.AccountBase().Password, "new-password-1"))
}

func TestPasswordResetRejectsExpiredAndReplacedTokens(t *testing.T) {
	svc, store, mailer, clock := newResetFixture(t)
	ctx := context.Background()
	createInstitute(t, store, "expire@springfield.edu", "+919876543210", "password123", true)

	require.NoError(t, svc.RequestReset(ctx, models.KindInstitute, "expire@springfield.edu"))
	first, _ := resetTokenFrom(t, mailer.last(t).Body)

	require.NoError(t, svc.RequestReset(ctx, models.KindInstitute, "expire@springfield.edu"))
	second, _ := resetTokenFrom(t, mailer.last(t).Body)
	require.NotEqual(t, first, second)
	require.ErrorIs(t, svc.ResetPassword(ctx, first, "new-password-1"), ErrInvalidResetToken)

	clock.Advance(time.Hour + time.Minute)
	require.ErrorIs(t, svc.ResetPassword(ctx, second, "new-password-1"), ErrInvalidResetToken)

	purged, err := svc.PurgeExpired(ctx, clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

func TestPasswordResetValidatesInput(t *testing.T) {
	svc, _, _, _ := newResetFixture(t)

	require.ErrorIs(t, svc.ResetPassword(context.Background(), "", "new-password-1"), ErrInvalidResetToken)
	require.ErrorIs(t, svc.ResetPassword(context.Background(), "token", "short"), apperrors.ErrValidation)
	require.ErrorIs(t, svc.ResetPassword(context.Background(), "unknown-token", "long-enough-1"), ErrInvalidResetToken)
}
