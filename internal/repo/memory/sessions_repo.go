package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/wellnesshub/internal/domain/session"
)

// SessionsRepo keeps sessions in a map. It resolves owner emails through the
// UsersRepo it is built with.
type SessionsRepo struct {
	mu    sync.RWMutex
	items map[string]session.Session
	users *UsersRepo
}

func NewSessionsRepo(users *UsersRepo) *SessionsRepo {
	return &SessionsRepo{
		items: make(map[string]session.Session),
		users: users,
	}
}

func (r *SessionsRepo) Insert(_ context.Context, s session.Session) (session.Session, error) {
	s.Tags = cloneTags(s.Tags)

	r.mu.Lock()
	r.items[s.ID] = s
	r.mu.Unlock()

	return copySession(s), nil
}

func (r *SessionsRepo) UpdateOwned(_ context.Context, ownerID, id string, f session.Fields, publish bool, now time.Time) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok || s.OwnerID != ownerID {
		return session.Session{}, session.ErrNotFound
	}

	s.Title = f.Title
	s.Tags = cloneTags(f.Tags)
	s.JSONURL = f.JSONURL
	s.UpdatedAt = advance(s.UpdatedAt, now)

	if publish {
		s.Status = session.StatusPublished
	}

	r.items[id] = s

	return copySession(s), nil
}

func (r *SessionsRepo) GetOwned(_ context.Context, ownerID, id string) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok || s.OwnerID != ownerID {
		return session.Session{}, session.ErrNotFound
	}

	return copySession(s), nil
}

func (r *SessionsRepo) ListByOwner(_ context.Context, ownerID string) ([]session.Session, error) {
	r.mu.RLock()
	out := make([]session.Session, 0)
	for _, s := range r.items {
		if s.OwnerID == ownerID {
			out = append(out, copySession(s))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	return out, nil
}

func (r *SessionsRepo) ListPublished(ctx context.Context) ([]session.Public, error) {
	r.mu.RLock()
	out := make([]session.Public, 0)
	for _, s := range r.items {
		if s.Status != session.StatusPublished {
			continue
		}
		out = append(out, session.Public{Session: copySession(s)})
	}
	r.mu.RUnlock()

	for i := range out {
		if u, err := r.users.GetByID(ctx, out[i].OwnerID); err == nil {
			out[i].OwnerEmail = u.Email
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (r *SessionsRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

// advance returns now, or prev+1µs when now would not move the timestamp
// forward. Microseconds match the postgres timestamptz resolution.
func advance(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func copySession(s session.Session) session.Session {
	s.Tags = cloneTags(s.Tags)
	return s
}
