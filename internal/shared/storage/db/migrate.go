package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"call-analytics-backend/internal/shared/telemetry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// gooseLogger sends goose output through telemetry instead of the std logger.
type gooseLogger struct{}

func (gooseLogger) Print(v ...interface{}) {
	telemetry.Info("db.migrate", map[string]any{"detail": fmt.Sprint(v...)})
}
func (gooseLogger) Println(v ...interface{}) { gooseLogger{}.Print(v...) }
func (gooseLogger) Printf(format string, v ...interface{}) {
	telemetry.Info("db.migrate", map[string]any{"detail": strings.TrimSpace(fmt.Sprintf(format, v...))})
}
func (gooseLogger) Fatal(v ...interface{}) { panic(fmt.Sprint(v...)) }
func (gooseLogger) Fatalf(format string, v ...interface{}) {
	panic(fmt.Sprintf(format, v...))
}

// RunMigrations brings the call, transcript, template, analysis and result tables up to
// date and returns the resulting schema version. A nil database is a no-op (memory mode).
func RunMigrations(ctx context.Context, database *sql.DB) (int64, error) {
	if database == nil {
		return 0, nil
	}
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}
	if err := goose.UpContext(ctx, database, "migrations"); err != nil {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	return goose.GetDBVersion(database)
}
