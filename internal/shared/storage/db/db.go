package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"call-analytics-backend/internal/shared/telemetry"
)

// Role names the process a pool is sized for.
type Role string

const (
	RoleAPI     Role = "api"
	RoleWorker  Role = "worker"
	RoleMigrate Role = "migrate"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// ConnectWait is how long Connect keeps retrying an unreachable database. Zero means one attempt.
	ConnectWait time.Duration
}

var openDB = sql.Open

// PoolOptions sizes a pool for role. callSlots is the number of calls that can be in
// flight at once in this process; each one upserts a result and bumps counters, so
// it needs its own connection, plus headroom for status polling and heartbeats.
func PoolOptions(role Role, callSlots int) Options {
	if callSlots < 1 {
		callSlots = 1
	}
	opts := Options{
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ConnectWait:     30 * time.Second,
	}
	switch role {
	case RoleMigrate:
		opts.MaxOpenConns, opts.MaxIdleConns = 1, 1
	case RoleWorker:
		opts.MaxOpenConns = callSlots + 4
		opts.MaxIdleConns = callSlots/2 + 2
	default:
		opts.MaxOpenConns = callSlots + 8
		opts.MaxIdleConns = 5
	}
	return opts
}

// OptionsFromEnv overrides opts with DB_* env vars if present.
func OptionsFromEnv(opts Options) Options {
	for key, dst := range map[string]*int{
		"DB_MAX_OPEN_CONNS": &opts.MaxOpenConns,
		"DB_MAX_IDLE_CONNS": &opts.MaxIdleConns,
	} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				telemetry.Warn("db.env.invalid", map[string]any{"key": key, "value": raw})
				continue
			}
			*dst = v
		}
	}
	for key, dst := range map[string]*time.Duration{
		"DB_CONN_MAX_LIFETIME":  &opts.ConnMaxLifetime,
		"DB_CONN_MAX_IDLE_TIME": &opts.ConnMaxIdleTime,
		"DB_PING_TIMEOUT":       &opts.PingTimeout,
		"DB_CONNECT_WAIT":       &opts.ConnectWait,
	} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			v, err := time.ParseDuration(raw)
			if err != nil || v < 0 {
				telemetry.Warn("db.env.invalid", map[string]any{"key": key, "value": raw})
				continue
			}
			*dst = v
		}
	}
	return opts
}

// Connect opens a pgx-backed *sql.DB and waits for it to answer a ping, retrying with
// exponential backoff for up to opts.ConnectWait. The returned *sql.DB is shared by all repos.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	attempt := 0
	ping := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		err := db.PingContext(pingCtx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		telemetry.Warn("db.connect_retry", map[string]any{"attempt": attempt, "wait": wait.String(), "error": err.Error()})
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if opts.ConnectWait > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 250 * time.Millisecond
		eb.MaxInterval = 5 * time.Second
		eb.MaxElapsedTime = opts.ConnectWait
		policy = eb
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(policy, ctx), notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := db.Stats()
	telemetry.Info("db.init", map[string]any{
		"attempts": attempt,
		"max_open": stats.MaxOpenConnections,
		"max_idle": opts.MaxIdleConns,
	})
	return db, nil
}

func configurePool(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 || opts.MaxIdleConns > opts.MaxOpenConns {
		opts.MaxIdleConns = opts.MaxOpenConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}
