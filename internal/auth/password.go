package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

var (
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d bytes", maxPasswordLen)
	ErrWrongPassword   = errors.New("wrong password")
)

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", ErrWeakPassword
	}
	if len(password) > maxPasswordLen {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}
