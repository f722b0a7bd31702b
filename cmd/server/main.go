package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/campusbridge/onboard/internal/app"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/response"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:])
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	default:
		fmt.Fprintf(os.Stderr, "onboard-server: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	addr        string
	checkConfig bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("onboard-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	fs.StringVar(&opts.configPath, "config", "", "configuration directory or file")
	fs.StringVar(&opts.addr, "addr", "", "listen address; overrides server.port")
	fs.BoolVar(&opts.checkConfig, "check-config", false, "validate configuration and exit")
	return opts, fs.Parse(args)
}

func run(ctx context.Context, args []string) (err error) {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(opts.configPath)
	if err != nil {
		return err
	}
	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.checkConfig {
		fmt.Fprintln(os.Stdout, "configuration ok")
		return nil
	}

	if err := app.ConfigureLogging(cfg.Server); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	response.ExposeErrorDetail(cfg.Server.IsDevelopment())

	log := logger.WithModule("bootstrap")
	for key := range generated {
		log.Warn("generated runtime secret; sessions end on restart", zap.String("key", key))
	}

	stack, err := bootstrapRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, stack.Shutdown(stopCtx, log))
	}()

	addr := opts.addr
	if addr == "" {
		addr = ":" + strconv.Itoa(cfg.Server.Port)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           stack.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          zap.NewStdLog(log),
	}
	return serve(ctx, server, listener, log)
}

// serve blocks until ctx is cancelled or the server fails, then drains
// in-flight requests.
func serve(ctx context.Context, server *http.Server, listener net.Listener, log *zap.Logger) error {
	failed := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", listener.Addr().String()))
		failed <- server.Serve(listener)
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-failed; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// loadApplicationConfig accepts either a directory or a config file; for a
// file its directory is searched.
func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	case err != nil:
		return nil, fmt.Errorf("stat config path: %w", err)
	case info.IsDir():
		return app.LoadConfig(path)
	default:
		return app.LoadConfig(filepath.Dir(path))
	}
}
