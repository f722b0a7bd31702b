package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"

	"github.com/campusbridge/onboard/internal/cache"
	testutil "github.com/campusbridge/onboard/internal/database/testutil"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/monitoring"
	"github.com/campusbridge/onboard/internal/services"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func TestCleanerRunOnce(t *testing.T) {
	mod, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)
	monitoring.SetModule(mod)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &fixedClock{current: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	store, err := services.NewGormAccountStore(db)
	require.NoError(t, err)
	resets, err := services.NewPasswordResetService(db, store, nil, "https://app.example.com")
	require.NoError(t, err)
	cacheStore := cache.NewDatabaseStore(db, cache.WithDatabaseClock(clock.Now))

	hash := "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	staleExpiry := clock.Now().Add(-30 * time.Hour)
	freshExpiry := clock.Now().Add(-time.Hour)
	stale := &models.Student{
		Account: models.Account{
			Email:                 "stale@example.com",
			Phone:                 "+919876500001",
			Password:              "x",
			VerificationCodeHash:  &hash,
			VerificationExpiresAt: &staleExpiry,
			VerificationAttempts:  2,
		},
		FullName: "Stale Student",
	}
	fresh := &models.Student{
		Account: models.Account{
			Email:                 "fresh@example.com",
			Phone:                 "+919876500002",
			Password:              "x",
			VerificationCodeHash:  &hash,
			VerificationExpiresAt: &freshExpiry,
		},
		FullName: "Fresh Student",
	}
	require.NoError(t, store.Create(ctx, stale))
	require.NoError(t, store.Create(ctx, fresh))

	require.NoError(t, db.Create(&models.PasswordResetToken{
		AccountType: models.KindStudent,
		AccountID:   stale.ID,
		TokenHash:   "expired-long-ago",
		ExpiresAt:   clock.Now().Add(-48 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.PasswordResetToken{
		AccountType: models.KindStudent,
		AccountID:   fresh.ID,
		TokenHash:   "still-valid",
		ExpiresAt:   clock.Now().Add(time.Hour),
	}).Error)

	require.NoError(t, cacheStore.Set(ctx, "mx:gone.example", []byte("1"), time.Minute))
	require.NoError(t, cacheStore.Set(ctx, "mx:kept.example", []byte("1"), 48*time.Hour))
	clock.current = clock.current.Add(2 * time.Minute)

	c := NewCleaner(resets, store,
		WithNow(clock.Now),
		WithCachePurger(cacheStore),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NoError(t, c.RunOnce(ctx))

	var tokens int64
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&tokens).Error)
	require.Equal(t, int64(1), tokens)

	reloaded, err := store.FindByID(ctx, models.KindStudent, stale.ID)
	require.NoError(t, err)
	require.False(t, reloaded.AccountBase().HasLiveCode())
	require.Zero(t, reloaded.AccountBase().VerificationAttempts)

	reloaded, err = store.FindByID(ctx, models.KindStudent, fresh.ID)
	require.NoError(t, err)
	require.True(t, reloaded.AccountBase().HasLiveCode())

	_, ok, err := cacheStore.Get(ctx, "mx:gone.example")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = cacheStore.Get(ctx, "mx:kept.example")
	require.NoError(t, err)
	require.True(t, ok)

	summary := mod.Summary()
	require.Len(t, summary.Jobs, 3)
	for _, job := range summary.Jobs {
		require.Equal(t, "success", job.LastResult, job.Name)
		require.Equal(t, int64(1), job.Purged, job.Name)
	}
}

type failingPurger struct{ err error }

func (p failingPurger) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, p.err }

type kindRecorder struct {
	mu    sync.Mutex
	kinds []models.AccountKind
	err   error
}

func (r *kindRecorder) PurgeStaleCodes(_ context.Context, kind models.AccountKind, _ time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	if kind == models.KindStudent {
		return 0, r.err
	}
	return 3, nil
}

func TestCleanerRunOnceAggregatesFailures(t *testing.T) {
	codes := &kindRecorder{err: errors.New("students table locked")}
	c := NewCleaner(failingPurger{err: errors.New("reset tokens unavailable")}, codes)

	err := c.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorContains(t, err, "reset_tokens: reset tokens unavailable")
	require.ErrorContains(t, err, "stale_codes: students table locked")
	require.Equal(t, []models.AccountKind{models.KindInstitute, models.KindStudent}, codes.kinds)
}

func TestCleanerWithoutJobsIsNoop(t *testing.T) {
	c := NewCleaner(nil, nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
	<-c.Stop().Done()
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	c := NewCleaner(nil, &kindRecorder{}, WithSchedule("every tuesday"))
	require.ErrorContains(t, c.Start(), "schedule stale_codes")
}

func TestCleanerStopReleasesScheduler(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewCleaner(nil, &kindRecorder{}, WithSchedule("@every 1h"))
	require.NoError(t, c.Start())

	select {
	case <-c.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
