// Command migrate applies the embedded schema migrations and exits:
//
//	go run ./cmd/migrate
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"call-analytics-backend/internal/shared/config"
	"call-analytics-backend/internal/shared/storage/db"
	"call-analytics-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.PoolOptions(db.RoleMigrate, 0)))
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer sqlDB.Close()

	version, err := db.RunMigrations(ctx, sqlDB)
	if err != nil {
		sqlDB.Close()
		log.Fatalf("run migrations: %v", err)
	}
	telemetry.Info("migrate.done", map[string]any{"schema_version": version})
}
