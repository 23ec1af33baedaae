package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/geocoder89/wellnesshub/internal/domain/user"
	"github.com/geocoder89/wellnesshub/internal/security"
)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password so callers cannot tell which check failed.
var ErrInvalidCredentials = apperr.Auth("Invalid credentials")

type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// Result is what register and login hand back to the client.
type Result struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

type Gate struct {
	users UserStore
	jwt   *Manager

	// compared against when the email is unknown so both login failures do
	// the same bcrypt work.
	dummyHash string
}

func NewGate(users UserStore, jwtManager *Manager) (*Gate, error) {
	dummy, err := security.HashPassword("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}

	return &Gate{users: users, jwt: jwtManager, dummyHash: dummy}, nil
}

func (g *Gate) Register(ctx context.Context, email, password string) (Result, error) {
	email = strings.TrimSpace(email)

	if err := checkCredentials(email, password); err != nil {
		return Result{}, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return Result{}, apperr.Internal("Could not create user", err)
	}

	u, err := g.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyTaken) {
			return Result{}, apperr.Conflict("User already exists")
		}
		return Result{}, apperr.Internal("Could not create user", err)
	}

	return g.issue(u)
}

func (g *Gate) Login(ctx context.Context, email, password string) (Result, error) {
	email = strings.TrimSpace(email)

	if err := checkCredentials(email, password); err != nil {
		return Result{}, err
	}

	u, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return Result{}, apperr.Internal("Could not log in", err)
		}

		_ = security.CheckPassword(g.dummyHash, password)
		return Result{}, ErrInvalidCredentials
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return Result{}, ErrInvalidCredentials
	}

	return g.issue(u)
}

// Authenticate verifies a bearer token and returns the user id it carries.
func (g *Gate) Authenticate(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.MissingCredential("Access token required")
	}

	claims, err := g.jwt.VerifyAccessToken(token)
	if err != nil {
		return "", apperr.InvalidCredential("Invalid token", err)
	}

	return claims.UserID, nil
}

func checkCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperr.Validation("Email and password required")
	}

	if len(password) > security.MaxPasswordBytes {
		return apperr.Validation("Password must be at most 72 bytes")
	}

	return nil
}

func (g *Gate) issue(u user.User) (Result, error) {
	token, err := g.jwt.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return Result{}, apperr.Internal("Could not generate access token", err)
	}

	return Result{Token: token, User: u.Identity()}, nil
}
