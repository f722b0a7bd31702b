package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusbridge/onboard/internal/handlers/testutil"
	"github.com/campusbridge/onboard/internal/monitoring"
)

type healthPayload struct {
	Status monitoring.ProbeStatus `json:"status"`
	Checks []struct {
		Component string                 `json:"component"`
		Status    monitoring.ProbeStatus `json:"status"`
	} `json:"checks"`
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/api/health/ready"} {
		resp := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, resp.Code, path)

		body := testutil.DecodeResponse(t, resp)
		require.True(t, body.Success)
		var report healthPayload
		testutil.DecodeInto(t, body.Data, &report)
		require.Equal(t, monitoring.StatusUp, report.Status, path)
	}

	resp := env.Request(http.MethodGet, "/health/ready", nil, "")
	var report healthPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &report)
	require.Len(t, report.Checks, 2)
}

func TestReadinessFailsWhenComponentDown(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	env.Monitoring.Health().RegisterReadiness(monitoring.NewCheck("storage", func(context.Context) monitoring.ProbeResult {
		return monitoring.ResultFromError("storage", errors.New("bucket unreachable"), 0)
	}))

	resp := env.Request(http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code, resp.Body.String())

	// liveness does not depend on downstream components
	resp = env.Request(http.MethodGet, "/health/live", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestMetricsEndpointExposesRequestLatency(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/health/live", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `onboard_api_latency_seconds_count{method="GET",path="/health/live",status="200"}`)
	require.Contains(t, resp.Body.String(), "go_goroutines")
}
