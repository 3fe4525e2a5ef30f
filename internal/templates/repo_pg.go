package templates

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const templateColumns = `id, name, category, description, query_text, is_system, created_at`

func (r *PGRepo) Create(ctx context.Context, t Template) error {
	const query = `
INSERT INTO analysis_templates (id, name, category, description, query_text, is_system, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query, t.ID, t.Name, t.Category, t.Description, t.QueryText, t.IsSystem, t.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Template, error) {
	return r.getOne(ctx, `SELECT `+templateColumns+` FROM analysis_templates WHERE id = $1`, id)
}

func (r *PGRepo) GetSystemByName(ctx context.Context, name string) (Template, error) {
	return r.getOne(ctx, `SELECT `+templateColumns+` FROM analysis_templates WHERE name = $1 AND is_system`, name)
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg string) (Template, error) {
	var t Template
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.Name, &t.Category, &t.Description, &t.QueryText, &t.IsSystem, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

func (r *PGRepo) List(ctx context.Context, category string) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM analysis_templates`
	var args []any
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY is_system DESC, name`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Template{}
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.QueryText, &t.IsSystem, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analysis_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
