package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/musicmoon/marketplace/internal/config"
	"github.com/musicmoon/marketplace/internal/infra"
	"github.com/musicmoon/marketplace/internal/logging"
	"github.com/musicmoon/marketplace/internal/metrics"
	"github.com/musicmoon/marketplace/internal/routes"
	"github.com/musicmoon/marketplace/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("api stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("api exited cleanly")
}

// run serves until ctx is cancelled, then drains within the shutdown period.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	backends, err := infra.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect backends: %w", err)
	}
	defer backends.Close(logger)

	if backends.DB == nil {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}
	if backends.Media == nil {
		logger.Warn("S3 credentials not set, using in-memory media store")
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       backends.DB,
		Cache:    backends.Cache,
		Media:    backends.Media,
		Registry: metrics.NewRegistry(),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.Listen() }()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received", slog.Any("cause", context.Cause(ctx)))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
