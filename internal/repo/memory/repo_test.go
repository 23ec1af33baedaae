package memory

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/geocoder89/wellnesshub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepoEmailIsCaseInsensitive(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	u, err := r.Create(ctx, "A@x.com", "hash")
	require.NoError(t, err)

	_, err = r.Create(ctx, "a@X.com", "hash")
	assert.ErrorIs(t, err, user.ErrEmailAlreadyTaken)

	got, err := r.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "A@x.com", got.Email)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestAdvance(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, advance(base, base).Equal(base.Add(time.Microsecond)))
	assert.True(t, advance(base, base.Add(-time.Hour)).Equal(base.Add(time.Microsecond)))
	assert.True(t, advance(base, base.Add(time.Second)).Equal(base.Add(time.Second)))
	// sub-microsecond progress does not count
	assert.True(t, advance(base, base.Add(time.Nanosecond)).Equal(base.Add(time.Microsecond)))
}

func TestSessionsRepoReturnsCopies(t *testing.T) {
	r := NewSessionsRepo(NewUsersRepo())
	ctx := context.Background()

	tags := []string{"a"}
	s, err := r.Insert(ctx, session.Session{ID: "s1", OwnerID: "o1", Title: "T", Tags: tags})
	require.NoError(t, err)

	tags[0] = "mutated"
	s.Tags[0] = "mutated too"

	got, err := r.GetOwned(ctx, "o1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)

	_, err = r.GetOwned(ctx, "o2", "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
