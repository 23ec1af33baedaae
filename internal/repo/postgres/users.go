package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/wellnesshub/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewUsersRepo(pool *pgxpool.Pool, obs DBObserver) *UsersRepo {
	return &UsersRepo{pool: pool, obs: obs}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	err := observe(r.obs, "users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
			u.ID, u.Email, u.PasswordHash, u.CreatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return user.User{}, user.ErrEmailAlreadyTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := observe(r.obs, "users.get_by_email", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, email, password_hash, created_at
			 FROM users
			 WHERE lower(email) = lower($1)`,
			email,
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
