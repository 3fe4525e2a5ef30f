package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"call-analytics-backend/internal/shared/telemetry"
)

// Service contains business logic for templates.
type Service struct {
	Repo Repo
}

// CreateInput is the user-supplied part of a template.
type CreateInput struct {
	Name        string
	Category    string
	Description string
	QueryText   string
}

// Create validates and stores a user template.
func (s *Service) Create(ctx context.Context, in CreateInput) (Template, error) {
	name := strings.TrimSpace(in.Name)
	query := strings.TrimSpace(in.QueryText)
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if name == "" || query == "" {
		return Template{}, fmt.Errorf("%w: name and query_text are required", ErrInvalidInput)
	}
	if category == "" {
		category = CategoryGeneral
	}
	if !ValidCategory(category) {
		return Template{}, ErrInvalidCategory
	}
	t := Template{
		ID:          uuid.NewString(),
		Name:        name,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		QueryText:   query,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		return Template{}, err
	}
	telemetry.Info("template.created", map[string]any{"template_id": t.ID, "category": t.Category})
	return t, nil
}

// Get returns a template by ID.
func (s *Service) Get(ctx context.Context, id string) (Template, error) {
	return s.Repo.GetByID(ctx, id)
}

// List returns templates, optionally narrowed to one category.
func (s *Service) List(ctx context.Context, category string) ([]Template, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" && !ValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	return s.Repo.List(ctx, category)
}

// Delete removes a user template. System templates are protected.
func (s *Service) Delete(ctx context.Context, id string) error {
	t, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.IsSystem {
		return ErrForbidden
	}
	return s.Repo.Delete(ctx, id)
}

// SeedSystem inserts every seed that does not yet exist as a system template.
func (s *Service) SeedSystem(ctx context.Context, seeds []Seed) (int, error) {
	inserted := 0
	for _, seed := range seeds {
		_, err := s.Repo.GetSystemByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return inserted, err
		}
		t := Template{
			ID:          uuid.NewString(),
			Name:        seed.Name,
			Category:    seed.Category,
			Description: seed.Description,
			QueryText:   seed.QueryText,
			IsSystem:    true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.Repo.Create(ctx, t); err != nil {
			return inserted, fmt.Errorf("seed %q: %w", seed.Name, err)
		}
		inserted++
	}
	if inserted > 0 {
		telemetry.Info("templates.seeded", map[string]any{"inserted": inserted, "total": len(seeds)})
	}
	return inserted, nil
}
