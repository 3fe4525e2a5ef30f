package templates

import "context"

// Repo defines persistence for templates.
type Repo interface {
	Create(ctx context.Context, t Template) error
	GetByID(ctx context.Context, id string) (Template, error)
	GetSystemByName(ctx context.Context, name string) (Template, error)
	// List returns templates ordered system-first then by name. An empty category lists all.
	List(ctx context.Context, category string) ([]Template, error)
	Delete(ctx context.Context, id string) error
}
