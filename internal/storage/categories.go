package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM categories WHERE user_id = ? ORDER BY name COLLATE NOCASE, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE user_id = ? AND id = ?`, userID, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// EnsureCategory returns the user's category with this name, creating it when
// missing. Names compare case-insensitively. created reports whether a row was inserted.
func (r *SQLiteRepository) EnsureCategory(ctx context.Context, userID int64, name string) (c core.Category, created bool, err error) {
	name = strings.TrimSpace(name)
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id, name FROM categories WHERE user_id = ? AND name = ?`, userID, name).Scan(&c.ID, &c.Name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("find category: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO categories (user_id, name) VALUES (?, ?) RETURNING id, name`, userID, name).Scan(&c.ID, &c.Name); err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return core.Category{}, false, err
	}
	if created {
		slog.InfoContext(ctx, "Category created", "user_id", userID, "category_id", c.ID, "category", c.Name)
	}
	return c, created, nil
}

// DeleteCategory removes a category. Expenses that referenced it become uncategorized.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) (detached int64, err error) {
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE line_items SET category_id = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE user_id = ? AND category_id = ?`, userID, id)
		if err != nil {
			return fmt.Errorf("detach category %d: %w", id, err)
		}
		if detached, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
		if err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		return expectAffected(res)
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Category deleted", "user_id", userID, "category_id", id, "detached_items", detached)
	return detached, nil
}
