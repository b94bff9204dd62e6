package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const userColumns = `id, name, email, password_hash, COALESCE(birth_date, ''), created_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u         core.User
		birthDate string
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &birthDate, &createdAt); err != nil {
		return core.User{}, err
	}
	if birthDate != "" {
		d, err := core.ParseDate(birthDate)
		if err != nil {
			return core.User{}, fmt.Errorf("user %d birth date: %w", u.ID, err)
		}
		u.BirthDate = d
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

// CreateUser stores a new user. The email must not be registered yet.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	var birthDate any
	if !u.BirthDate.IsZero() {
		birthDate = u.BirthDate.String()
	}
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, birth_date)
		 VALUES (?, ?, ?, ?)
		 RETURNING `+userColumns,
		u.Name, core.NormalizeEmail(u.Email), u.PasswordHash, birthDate)
	created, err := scanUser(row)
	if isUniqueViolation(err) {
		return core.User{}, ErrEmailTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", created.ID)
	return created, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}
