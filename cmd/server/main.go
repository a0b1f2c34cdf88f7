// Command server runs the posterboard API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posterboard/internal/config"
	"posterboard/internal/jobs"
	"posterboard/internal/observability"
	"posterboard/internal/server"

	"golang.org/x/sync/errgroup"
)

// @title Posterboard API
// @version 1.0
// @description Pinned comments on a shared poster, with threaded replies and live updates.

// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Team token from /team/unlock, as "Bearer <token>".

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	observability.InitLogging(cfg.Env)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "posterboard-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.OTELEnabled,
		Exporter:       cfg.OTELExporter,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	cronMgr := jobs.NewManager(jobs.NewPosterJanitor(srv.PosterService()))
	if err := cronMgr.RegisterJobs(cfg.PosterJanitorSchedule); err != nil {
		slog.Error("Failed to schedule poster janitor", "error", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cronMgr.Start()
		<-ctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		return cronMgr.Stop(stopCtx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Error("Tracing shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exited")
}
