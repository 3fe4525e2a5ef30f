package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB Pinger
}

// NewService constructs a new health service. db may be nil in memory mode.
func NewService(db *sql.DB) *Service {
	if db == nil {
		return &Service{}
	}
	return &Service{DB: db}
}

// Status reports which storage backend is in use and whether it answers.
func (s *Service) Status(ctx context.Context) (map[string]any, error) {
	if s.DB == nil {
		return map[string]any{"ok": true, "storage": "memory"}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return map[string]any{"ok": false, "storage": "postgres"}, err
	}
	return map[string]any{"ok": true, "storage": "postgres"}, nil
}
