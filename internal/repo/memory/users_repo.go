package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/wellnesshub/internal/domain/user"
	"github.com/google/uuid"
)

type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string // lower-cased email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Create(_ context.Context, email, passwordHash string) (user.User, error) {
	key := strings.ToLower(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[key]; taken {
		return user.User{}, user.ErrEmailAlreadyTaken
	}

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	r.byID[u.ID] = u
	r.byEmail[key] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
