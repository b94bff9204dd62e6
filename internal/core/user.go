package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrEmptyName    = errors.New("empty name")
	ErrInvalidEmail = errors.New("invalid email")
)

type User struct {
	ID           int64
	Name         string
	Email        string
	BirthDate    Date // optional
	PasswordHash string
	CreatedAt    time.Time
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
