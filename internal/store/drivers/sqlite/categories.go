package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/musterapp/muster/internal/domain"
	"github.com/musterapp/muster/internal/store"
)

type categoriesRepo struct {
	db dbtx
}

func (r *categoriesRepo) CreateCategory(ctx context.Context, c domain.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, time.Now().UTC(),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *categoriesRepo) CreateSubcategory(ctx context.Context, sc domain.Subcategory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subcategories (id, category_id, name, created_at) VALUES (?, ?, ?, ?)`,
		sc.ID, sc.CategoryID, sc.Name, time.Now().UTC(),
	)
	return err
}

func (r *categoriesRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *categoriesRepo) ListSubcategories(ctx context.Context) ([]domain.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, name, created_at FROM subcategories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subcategory
	for rows.Next() {
		var sc domain.Subcategory
		if err := rows.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
