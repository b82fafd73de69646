package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/authclient/internal/devapi"
)

// DevServerOptions configures RunDevServer.
type DevServerOptions struct {
	Addr         string
	SeedUser     string
	SeedPassword string
	SeedFullName string
}

// NewDevHandler builds the development API and mounts it under the path of
// the configured API URL, so the default client configuration reaches it.
func NewDevHandler(cfg Config, logger *slog.Logger) (*devapi.Server, http.Handler, error) {
	api, err := devapi.New(devapi.Config{
		AccessTTL:     cfg.DevAccessTokenTTL,
		RotateRefresh: cfg.DevRotateRefresh,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}

	prefix := ""
	if u, err := url.Parse(cfg.APIURL); err == nil {
		prefix = strings.TrimSuffix(u.Path, "/")
	}
	if prefix == "" {
		return api, api, nil
	}

	mux := http.NewServeMux()
	mux.Handle(prefix+"/", http.StripPrefix(prefix, api))
	return api, mux, nil
}

// RunDevServer serves the development API until ctx is cancelled.
func RunDevServer(ctx context.Context, cfg Config, opts DevServerOptions, logger *slog.Logger) error {
	api, handler, err := NewDevHandler(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dev API: %w", err)
	}

	if opts.SeedUser != "" {
		fullName := opts.SeedFullName
		if fullName == "" {
			fullName = opts.SeedUser
		}
		if _, err := api.CreateUser(opts.SeedUser, fullName, "", opts.SeedPassword); err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}

	addr := opts.Addr
	if addr == "" {
		addr = cfg.DevAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}

	logger.Info("dev API starting", "addr", ln.Addr().String(), "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down dev API...")
	}

	grace := cfg.ShutdownGracePeriod
	if grace <= 0 {
		grace = 10 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful server shutdown failed", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("error closing server", "error", err)
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("dev API stopped")
	return nil
}
