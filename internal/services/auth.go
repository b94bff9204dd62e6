package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

// TokenIssuer hands out bearer tokens.
type TokenIssuer interface {
	Issue(userID int64) (auth.Token, error)
}

// Registration is the input of AuthService.Register.
type Registration struct {
	Name      string
	Email     string
	Password  string
	BirthDate core.Date
}

type AuthService struct {
	users  UserStore
	issuer TokenIssuer
}

func NewAuthService(users UserStore, issuer TokenIssuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, reg Registration) (core.User, auth.Token, error) {
	u := core.User{
		Name:      reg.Name,
		Email:     core.NormalizeEmail(reg.Email),
		BirthDate: reg.BirthDate,
	}
	if err := u.Validate(); err != nil {
		return core.User{}, auth.Token{}, err
	}
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return core.User{}, auth.Token{}, err
	}
	u.PasswordHash = hash

	created, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, auth.Token{}, fmt.Errorf("register: %w", err)
	}
	tok, err := s.issuer.Issue(created.ID)
	if err != nil {
		return core.User{}, auth.Token{}, err
	}
	return created, tok, nil
}

// Login checks the credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, auth.Token, error) {
	u, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, auth.Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, auth.Token{}, fmt.Errorf("login: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		slog.WarnContext(ctx, "Failed login", "user_id", u.ID)
		return core.User{}, auth.Token{}, ErrInvalidCredentials
	}
	tok, err := s.issuer.Issue(u.ID)
	if err != nil {
		return core.User{}, auth.Token{}, err
	}
	return u, tok, nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID int64) (core.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("whoami: %w", err)
	}
	return u, nil
}
