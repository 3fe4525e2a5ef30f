package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-analytics-backend/internal/bootstrap"
	"call-analytics-backend/internal/shared/config"
	"call-analytics-backend/internal/shared/server"
	"call-analytics-backend/internal/shared/storage/db"
	"call-analytics-backend/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, db.RoleAPI)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	if err := app.Migrate(ctx); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	if err := app.SeedTemplates(ctx); err != nil {
		log.Fatalf("seed templates: %v", err)
	}

	go app.Reconciler.Run(ctx)

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		telemetry.Info("api.started", map[string]any{"addr": srv.Addr, "env": cfg.Env, "queue": cfg.SQSQueueURL != ""})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	telemetry.Info("api.shutdown", map[string]any{"timeout": shutdownTimeout.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("api.shutdown_failed", map[string]any{"error": err.Error()})
	}

	// Let in-process analyses finish; the reconciler flags whatever the deadline cuts off.
	done := make(chan struct{})
	go func() {
		app.Analyses.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		telemetry.Warn("api.shutdown_timeout", map[string]any{"reason": "analyses still running"})
	}
}
