package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

func scanSaving(row interface{ Scan(...any) error }) (core.Saving, error) {
	var s core.Saving
	err := row.Scan(&s.ID, &s.Priority, &s.Description, &s.Value.Cents, &s.Goal.Cents)
	return s, err
}

// ListSavings returns the user's goals by ascending priority.
func (r *SQLiteRepository) ListSavings(ctx context.Context, userID int64) ([]core.Saving, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, priority, description, value_cents, goal_cents
		 FROM savings WHERE user_id = ? ORDER BY priority, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	defer rows.Close()

	var out []core.Saving
	for rows.Next() {
		s, err := scanSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetSaving(ctx context.Context, userID, id int64) (core.Saving, error) {
	s, err := scanSaving(r.db.QueryRowContext(ctx,
		`SELECT id, priority, description, value_cents, goal_cents
		 FROM savings WHERE user_id = ? AND id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Saving{}, ErrNotFound
	}
	if err != nil {
		return core.Saving{}, fmt.Errorf("get saving %d: %w", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) CreateSaving(ctx context.Context, userID int64, s core.Saving) (core.Saving, error) {
	created, err := scanSaving(r.db.QueryRowContext(ctx,
		`INSERT INTO savings (user_id, priority, description, value_cents, goal_cents)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id, priority, description, value_cents, goal_cents`,
		userID, s.Priority, s.Description, s.Value.Cents, s.Goal.Cents))
	if err != nil {
		return core.Saving{}, fmt.Errorf("insert saving: %w", err)
	}
	return created, nil
}

func (r *SQLiteRepository) UpdateSaving(ctx context.Context, userID int64, s core.Saving) (core.Saving, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings SET priority = ?, description = ?, value_cents = ?, goal_cents = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		s.Priority, s.Description, s.Value.Cents, s.Goal.Cents, s.ID, userID)
	if err != nil {
		return core.Saving{}, fmt.Errorf("update saving %d: %w", s.ID, err)
	}
	if err := expectAffected(res); err != nil {
		return core.Saving{}, err
	}
	return r.GetSaving(ctx, userID, s.ID)
}

func (r *SQLiteRepository) DeleteSaving(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete saving %d: %w", id, err)
	}
	return expectAffected(res)
}
