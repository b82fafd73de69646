package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/authsdk"
	"github.com/aussiebroadwan/authclient/pkg/credstore"
	"github.com/aussiebroadwan/authclient/pkg/credstore/drivers/sqlite"
	"github.com/aussiebroadwan/authclient/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the client-side dependencies shared by the commands.
type Application struct {
	cfg    Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *authsdk.Metrics

	backend credstore.Backend
	store   *credstore.Store
	client  *authsdk.Client
	session *authsdk.Session

	closers []io.Closer
}

// New opens the credential store, builds the client and restores the
// session.
func New(ctx context.Context, cfg Config, logOutput io.Writer) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authctl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  logOutput,
		}),
		registry: prometheus.NewRegistry(),
	}
	app.metrics = authsdk.NewMetrics(app.registry)

	if err := app.initStore(); err != nil {
		return nil, err
	}

	app.initClient()
	app.session = authsdk.NewSession(ctx, app.store, app.client, authsdk.WithSessionLogger(app.logger))

	return app, nil
}

// initStore opens the configured credential backend.
func (app *Application) initStore() error {
	switch app.cfg.StoreKind {
	case "memory":
		app.backend = credstore.NewMemoryBackend()

	case "file", "":
		app.backend = credstore.NewFileBackend(app.cfg.StorePath)

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(app.cfg.StorePath), 0o700); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
		db, err := sqlite.Open(fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", app.cfg.StorePath))
		if err != nil {
			return fmt.Errorf("failed to open credential database: %w", err)
		}
		app.backend = db
		app.closers = append(app.closers, db)

	default:
		return fmt.Errorf("unknown AUTH_STORE %q (want file, sqlite or memory)", app.cfg.StoreKind)
	}

	app.store = credstore.New(app.backend)
	app.logger.Debug("credential store ready", "kind", app.cfg.StoreKind, "path", app.cfg.StorePath)
	return nil
}

func (app *Application) initClient() {
	opts := []authsdk.Option{
		authsdk.WithLogger(app.logger),
		authsdk.WithTimeout(app.cfg.Timeout),
		authsdk.WithMetrics(app.metrics),
	}

	if app.cfg.CoalesceRefresh {
		opts = append(opts, authsdk.WithRefreshCoalescing())
	}
	if app.cfg.RefreshPerMinute > 0 {
		limit := rate.Every(time.Minute / time.Duration(app.cfg.RefreshPerMinute))
		opts = append(opts, authsdk.WithRefreshLimiter(rate.NewLimiter(limit, app.cfg.RefreshPerMinute)))
	}

	app.client = authsdk.NewClient(app.cfg.APIURL, app.store, opts...)
}

// Close flushes metrics and releases the credential backend.
func (app *Application) Close() error {
	var errs []error

	if app.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(app.cfg.MetricsFile, app.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}

	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (app *Application) Client() *authsdk.Client   { return app.client }
func (app *Application) Session() *authsdk.Session { return app.session }
func (app *Application) Store() *credstore.Store   { return app.store }
func (app *Application) Logger() *slog.Logger      { return app.logger }
