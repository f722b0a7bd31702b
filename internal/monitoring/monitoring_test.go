package monitoring_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusbridge/onboard/internal/database/testutil"
	"github.com/campusbridge/onboard/internal/monitoring"
	"github.com/campusbridge/onboard/internal/monitoring/checks"
)

func setupModule(t *testing.T) *monitoring.Module {
	t.Helper()

	mod, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)
	monitoring.SetModule(mod)
	return mod
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestSummaryTracksMaintenanceRuns(t *testing.T) {
	mod := setupModule(t)

	monitoring.RecordMaintenanceRun("reset_tokens", "success", "", 3, time.Second)
	monitoring.RecordMaintenanceRun("reset_tokens", "success", "", 2, time.Second)
	monitoring.RecordMaintenanceRun("Stale_Codes", "failure", "database locked", 0, time.Second)

	summary := mod.Summary()
	require.Len(t, summary.Jobs, 2)

	tokens, codes := summary.Jobs[0], summary.Jobs[1]
	require.Equal(t, "reset_tokens", tokens.Name)
	require.Equal(t, "stale_codes", codes.Name)

	require.True(t, codes.Failing())
	require.Equal(t, 1, codes.FailStreak)
	require.Equal(t, "database locked", codes.LastError)
	require.True(t, codes.LastSuccessAt.IsZero())

	require.False(t, tokens.Failing())
	require.Equal(t, 2, tokens.Runs)
	require.EqualValues(t, 5, tokens.Purged)
	require.False(t, tokens.StaleAt(time.Now(), time.Hour))
	require.True(t, tokens.StaleAt(time.Now().Add(2*time.Hour), time.Hour))

	monitoring.RecordMaintenanceRun("stale_codes", "success", "", 0, -time.Second)
	codes = mod.Summary().Jobs[1]
	require.Zero(t, codes.FailStreak)
	require.Empty(t, codes.LastError)
	require.Zero(t, codes.LastDuration)
}

func TestHandlerExposesMaintenanceMetrics(t *testing.T) {
	mod := setupModule(t)
	monitoring.RecordMaintenanceRun("cache_entries", "success", "", 4, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	mod.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `onboard_maintenance_runs_total{job="cache_entries",result="success"} 1`))
	require.True(t, strings.Contains(string(body), `onboard_maintenance_purged_rows_total{job="cache_entries"} 4`))
}

func TestNilModuleHandlerUnavailable(t *testing.T) {
	var mod *monitoring.Module
	rec := httptest.NewRecorder()
	mod.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, mod.Summary().Jobs)
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("mail", func(ctx context.Context) monitoring.ProbeResult {
		panic("smtp exploded")
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 3)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "cache", report.Checks[1].Component)
	require.Equal(t, "mail", report.Checks[2].Component)
	require.Contains(t, report.Checks[2].Details, "smtp exploded")

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Empty(t, live.Checks)

	merged := monitoring.MergeReports(live, report)
	require.Equal(t, monitoring.StatusDown, merged.Status)
	require.Len(t, merged.Checks, 3)
}

func TestResultFromErrorDegradesOnTimeout(t *testing.T) {
	t.Parallel()

	result := monitoring.ResultFromError("cache", context.DeadlineExceeded, time.Millisecond)
	require.Equal(t, monitoring.StatusDegraded, result.Status)

	result = monitoring.ResultFromError("cache", errors.New("refused"), -time.Second)
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Zero(t, result.Duration)
}

func TestDatabaseCheck(t *testing.T) {
	t.Parallel()

	db := testutil.MustOpenTestDB(t)
	result := checks.Database(db, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "database", result.Component)
	require.Contains(t, result.Details, "sqlite open=")

	result = checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Equal(t, "database not configured", result.Details)
}

func TestCacheCheck(t *testing.T) {
	t.Parallel()

	result := checks.Cache(stubPinger{}, "redis", 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "redis", result.Details)

	result = checks.Cache(stubPinger{err: errors.New("refused")}, "redis", 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)

	result = checks.Cache(stubPinger{err: errors.New("no such table")}, "database", 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)

	result = checks.Cache(nil, "redis", 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
}

func TestMaintenanceCheck(t *testing.T) {
	setupModule(t)

	result := checks.Maintenance(0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	monitoring.RecordMaintenanceRun("reset_tokens", "success", "", 0, time.Second)
	monitoring.RecordMaintenanceRun("stale_codes", "failure", "timeout", 0, time.Second)

	result = checks.Maintenance(0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "stale_codes: timeout")
}
