package repo

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"gatherly/internal/model"
)

func (r *repository) ListCategories(ctx context.Context) ([]model.Category, error) {
	query := `SELECT category_id, name FROM categories ORDER BY category_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) CategoriesExist(ctx context.Context, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE category_id = ANY($1)`,
		pq.Array(ids),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check categories: %w", err)
	}
	return count == len(ids), nil
}

func (r *repository) EventCategories(ctx context.Context, eventID int64) ([]model.Category, error) {
	query := `
		SELECT c.category_id, c.name
		FROM categories c
		JOIN event_categories ec ON ec.category_id = c.category_id
		WHERE ec.event_id = $1
		ORDER BY c.category_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list event categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan event category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
