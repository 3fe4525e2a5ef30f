package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"call-analytics-backend/internal/shared/telemetry"
)

// loadEnvFiles applies KEY=VALUE files in order. The process environment always
// wins, and an earlier file wins over a later one. Returns the files applied.
func loadEnvFiles(paths ...string) []string {
	var applied []string
	for _, path := range paths {
		values, err := godotenv.Read(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				telemetry.Warn("config.env_file_skipped", map[string]any{"path": path, "error": err.Error()})
			}
			continue
		}
		for key, value := range values {
			if _, set := os.LookupEnv(key); !set {
				_ = os.Setenv(key, value)
			}
		}
		applied = append(applied, path)
	}
	return applied
}
