package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServeDrainsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, listener, zap.NewNop()) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health/live")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-config", "/etc/onboard", "-addr", "127.0.0.1:9000", "-check-config"})
	require.NoError(t, err)
	require.Equal(t, "/etc/onboard", opts.configPath)
	require.Equal(t, "127.0.0.1:9000", opts.addr)
	require.True(t, opts.checkConfig)
}
