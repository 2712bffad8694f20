// Command diad serves the dia access-control engine over HTTP.
//
// Configuration comes from DIA_* environment variables, optionally seeded from a .env
// file. Without DIA_DATABASE_URL the daemon keeps users and refresh tokens in memory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dia-accounts/dia"
	"github.com/dia-accounts/dia/clientip"
	"github.com/dia-accounts/dia/internal/config"
	"github.com/dia-accounts/dia/internal/httpapi"
	"github.com/dia-accounts/dia/internal/logging"
	"github.com/dia-accounts/dia/internal/observability"
	"github.com/dia-accounts/dia/internal/stores"
	"github.com/dia-accounts/dia/jwt"
	otelexport "github.com/dia-accounts/dia/metrics/export/otel"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func main() {
	dotenv := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	d, err := config.Load(*dotenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, d, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, d config.Daemon, out io.Writer) error {
	a, err := newApp(ctx, d, out)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              d.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "listening", "addr", d.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type app struct {
	handler http.Handler
	logger  logging.Logger
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, d config.Daemon, out io.Writer) (_ *app, err error) {
	slogger, err := logging.NewSlog(out, d.LogLevel, d.LogFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.NewSlogLogger(slogger)
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if err := observability.InitSentry(d.SentryDSN, d.Environment, d.Release); err != nil {
		logger.Error(ctx, "init_sentry_failed", "err", err)
	} else {
		a.closers = append(a.closers, observability.FlushSentry)
	}

	cfg, err := d.ToEngineConfig()
	if err != nil {
		return nil, err
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    d.Redis.Addrs,
		Username: d.Redis.Username,
		Password: d.Redis.Password,
		DB:       d.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn(ctx, "redis_ping_failed", "err", err)
	}

	users, tokens, err := openStores(ctx, d, logger, a)
	if err != nil {
		return nil, err
	}

	keys, generated, err := jwt.LoadOrGenerateKeyPair(cfg.JWT.KeyPath, cfg.JWT.KeyBits)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	if generated {
		logger.Info(ctx, "generated signing key", "path", cfg.JWT.KeyPath, "kid", keys.KeyID())
	}

	engine, err := dia.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithRefreshTokenStore(tokens).
		WithKeyPair(keys).
		WithAuditSink(dia.NewJSONWriterSink(out)).
		WithLogger(slogger).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	a.closers = append(a.closers, engine.Close)

	if cfg.Metrics.Enabled && d.MetricsOTelInterval > 0 {
		if err := startOTelPush(engine, d.MetricsOTelInterval, out, a); err != nil {
			return nil, fmt.Errorf("otel metrics: %w", err)
		}
	} else if d.MetricsOTelInterval > 0 {
		logger.Warn(ctx, "DIA_METRICS_OTEL_INTERVAL ignored, metrics are disabled")
	}

	a.handler = httpapi.New(httpapi.Options{
		Engine:   engine,
		Logger:   logger,
		Resolver: clientip.Resolver{Header: d.TrustedHeader()},
		Metrics:  cfg.Metrics.Enabled,
	}).Handler()
	return a, nil
}

// startOTelPush exports the engine counters through an OpenTelemetry periodic
// reader. Shutdown pushes one final collection before the instruments go away.
func startOTelPush(engine *dia.Engine, interval time.Duration, out io.Writer, a *app) error {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
	if err != nil {
		return err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}

	exporter, err := otelexport.New(provider.Meter("github.com/dia-accounts/dia"), engine)
	if err != nil {
		shutdown()
		return err
	}
	// closers run in reverse: shut down the provider first, then unregister.
	a.closers = append(a.closers, func() { _ = exporter.Close() }, shutdown)
	return nil
}

func openStores(ctx context.Context, d config.Daemon, logger logging.Logger, a *app) (user.Store, refresh.Store, error) {
	if d.Database.URL == "" {
		logger.Warn(ctx, "DIA_DATABASE_URL not set, using in-memory stores")
		return stores.NewMemoryUsers(), stores.NewMemoryRefreshTokens(), nil
	}

	db, err := stores.Open(ctx, d.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	db.SetMaxOpenConns(d.Database.MaxOpenConns)
	db.SetMaxIdleConns(d.Database.MaxIdleConns)
	db.SetConnMaxLifetime(d.Database.ConnMaxLifetime)

	if d.Database.Migrate {
		if err := stores.Migrate(ctx, db); err != nil {
			return nil, nil, err
		}
	}
	return stores.NewUserRepository(db), stores.NewRefreshTokenRepository(db), nil
}
