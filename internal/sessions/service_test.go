package sessions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/geocoder89/wellnesshub/internal/cache"
	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/geocoder89/wellnesshub/internal/repo/memory"
	"github.com/geocoder89/wellnesshub/internal/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *sessions.Service
	users    *memory.UsersRepo
	store    *memory.SessionsRepo
	clock    *clockwork.FakeClock
	recorder *writeRecorder
}

type writeRecorder struct {
	ops []string
}

func (w *writeRecorder) RecordSessionWrite(op string, _ session.Status, _ bool) {
	w.ops = append(w.ops, op)
}

func newFixture(t *testing.T, opts ...sessions.Option) fixture {
	t.Helper()

	users := memory.NewUsersRepo()
	store := memory.NewSessionsRepo(users)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	rec := &writeRecorder{}

	all := append([]sessions.Option{sessions.WithClock(clock), sessions.WithMetrics(rec)}, opts...)

	return fixture{
		svc:      sessions.NewService(store, all...),
		users:    users,
		store:    store,
		clock:    clock,
		recorder: rec,
	}
}

func (f fixture) newUser(t *testing.T, email string) string {
	t.Helper()
	u, err := f.users.Create(context.Background(), email, "hash")
	require.NoError(t, err)
	return u.ID
}

func TestSaveDraftRequiresTitle(t *testing.T) {
	f := newFixture(t)
	owner := f.newUser(t, "a@x.com")

	for _, title := range []string{"", "   ", "\t"} {
		_, err := f.svc.SaveDraft(context.Background(), owner, session.SaveRequest{
			Title:   title,
			Tags:    "x,y",
			JSONURL: "https://cdn.example/a.json",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "title %q: got %v", title, err)
	}

	_, err := f.svc.Publish(context.Background(), owner, session.SaveRequest{Title: " "})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, 0, f.store.Count())
}

func TestSaveDraftCreatesDraftWithParsedTags(t *testing.T) {
	f := newFixture(t)
	owner := f.newUser(t, "a@x.com")

	s, err := f.svc.SaveDraft(context.Background(), owner, session.SaveRequest{Title: "T1", Tags: "a, b ,c"})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, owner, s.OwnerID)
	assert.Equal(t, session.StatusDraft, s.Status)
	assert.Equal(t, []string{"a", "b", "c"}, s.Tags)
	assert.True(t, f.clock.Now().Equal(s.CreatedAt))
	assert.True(t, s.CreatedAt.Equal(s.UpdatedAt))
	assert.Equal(t, []string{"save_draft"}, f.recorder.ops)
}

func TestSaveDraftTwiceUpdatesSameRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.newUser(t, "a@x.com")

	first, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{Title: "T1", Tags: "x"})
	require.NoError(t, err)

	// Same instant on the clock: updatedAt must still move forward.
	second, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{ID: first.ID, Title: "T1 edited", Tags: "x,y"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.store.Count())
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updatedAt did not advance")
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, "T1 edited", second.Title)
	assert.Equal(t, []string{"x", "y"}, second.Tags)

	f.clock.Advance(time.Minute)

	third, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{ID: first.ID, Title: "T1 again"})
	require.NoError(t, err)
	assert.True(t, f.clock.Now().Equal(third.UpdatedAt))
	assert.Equal(t, []string{}, third.Tags)
}

func TestPublishFreshCreatesPublishedRecord(t *testing.T) {
	f := newFixture(t)
	owner := f.newUser(t, "a@x.com")

	s, err := f.svc.Publish(context.Background(), owner, session.SaveRequest{Title: "Breathwork", Tags: "calm"})
	require.NoError(t, err)

	assert.Equal(t, session.StatusPublished, s.Status)
	assert.True(t, s.CreatedAt.Equal(s.UpdatedAt))
	assert.Equal(t, 1, f.store.Count())
}

func TestPublishTransitionsDraftAndIsRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.newUser(t, "a@x.com")

	draft, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{Title: "T1", Tags: "x,y"})
	require.NoError(t, err)

	published, err := f.svc.Publish(ctx, owner, session.SaveRequest{ID: draft.ID, Title: "T1", Tags: "x,y"})
	require.NoError(t, err)
	assert.Equal(t, session.StatusPublished, published.Status)
	assert.True(t, published.UpdatedAt.After(draft.UpdatedAt))

	again, err := f.svc.Publish(ctx, owner, session.SaveRequest{ID: draft.ID, Title: "T1 v2", Tags: "z"})
	require.NoError(t, err)
	assert.Equal(t, session.StatusPublished, again.Status)
	assert.Equal(t, "T1 v2", again.Title)
	assert.True(t, again.UpdatedAt.After(published.UpdatedAt))

	// A later draft save never moves a published session back to draft.
	resaved, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{ID: draft.ID, Title: "T1 v3"})
	require.NoError(t, err)
	assert.Equal(t, session.StatusPublished, resaved.Status)
	assert.Equal(t, 1, f.store.Count())
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.newUser(t, "a@x.com")
	bob := f.newUser(t, "b@x.com")

	s, err := f.svc.SaveDraft(ctx, alice, session.SaveRequest{Title: "Private"})
	require.NoError(t, err)

	_, err = f.svc.GetMine(ctx, bob, s.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, missingErr := f.svc.GetMine(ctx, bob, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, err.Error(), missingErr.Error(), "foreign and missing sessions must look identical")

	_, err = f.svc.GetMine(ctx, bob, "not-a-uuid")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	mine, err := f.svc.ListMine(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = f.svc.SaveDraft(ctx, bob, session.SaveRequest{ID: s.ID, Title: "hijack"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Publish(ctx, bob, session.SaveRequest{ID: s.ID, Title: "hijack"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	got, err := f.svc.GetMine(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
	assert.Equal(t, session.StatusDraft, got.Status)
}

func TestListPublishedOnlyShowsPublishedNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.newUser(t, "a@x.com")
	bob := f.newUser(t, "b@x.com")

	draft, err := f.svc.SaveDraft(ctx, alice, session.SaveRequest{Title: "Draft only"})
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	older, err := f.svc.Publish(ctx, alice, session.SaveRequest{Title: "Older"})
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	newer, err := f.svc.Publish(ctx, bob, session.SaveRequest{Title: "Newer"})
	require.NoError(t, err)

	items, err := f.svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)
	assert.Equal(t, "b@x.com", items[0].OwnerEmail)
	assert.Equal(t, older.ID, items[1].ID)
	assert.Equal(t, "a@x.com", items[1].OwnerEmail)

	for _, it := range items {
		assert.NotEqual(t, draft.ID, it.ID)
	}
}

func TestListMineNewestUpdatedFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.newUser(t, "a@x.com")

	first, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{Title: "First"})
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	second, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{Title: "Second"})
	require.NoError(t, err)

	items, err := f.svc.ListMine(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)

	f.clock.Advance(time.Second)
	_, err = f.svc.SaveDraft(ctx, owner, session.SaveRequest{ID: first.ID, Title: "First edited"})
	require.NoError(t, err)

	items, err = f.svc.ListMine(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, items[0].ID)
}

func TestPublishedListingCacheIsInvalidatedOnWrite(t *testing.T) {
	c := cache.NewWithClock(time.Hour, clockwork.NewFakeClock())
	f := newFixture(t, sessions.WithCache(c))
	ctx := context.Background()
	owner := f.newUser(t, "a@x.com")

	items, err := f.svc.ListPublished(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	s, err := f.svc.SaveDraft(ctx, owner, session.SaveRequest{Title: "T1"})
	require.NoError(t, err)

	items, err = f.svc.ListPublished(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = f.svc.Publish(ctx, owner, session.SaveRequest{ID: s.ID, Title: "T1"})
	require.NoError(t, err)

	items, err = f.svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, s.ID, items[0].ID)
}

// pausingStore holds the first published listing after it has been read from
// the store, until release is closed.
type pausingStore struct {
	sessions.Store
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingStore) ListPublished(ctx context.Context) ([]session.Public, error) {
	items, err := p.Store.ListPublished(ctx)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return items, err
}

func TestListingReadBeforePublishIsNotCachedAfterIt(t *testing.T) {
	for name, newCache := range map[string]func() cache.Store{
		"memory": func() cache.Store { return cache.NewWithClock(time.Hour, clockwork.NewFakeClock()) },
		"breaker": func() cache.Store {
			return cache.NewBreaker(cache.NewWithClock(time.Hour, clockwork.NewFakeClock()), cache.BreakerConfig{}, nil)
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			users := memory.NewUsersRepo()
			store := &pausingStore{
				Store:   memory.NewSessionsRepo(users),
				read:    make(chan struct{}),
				release: make(chan struct{}),
			}
			svc := sessions.NewService(store, sessions.WithCache(newCache()))

			u, err := users.Create(ctx, "a@x.com", "hash")
			require.NoError(t, err)

			slow := make(chan []session.Public, 1)
			go func() {
				items, _ := svc.ListPublished(ctx)
				slow <- items
			}()

			<-store.read

			published, err := svc.Publish(ctx, u.ID, session.SaveRequest{Title: "T1"})
			require.NoError(t, err)

			close(store.release)
			assert.Empty(t, <-slow, "the slow reader saw the store before the publish")

			items, err := svc.ListPublished(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, published.ID, items[0].ID)
		})
	}
}

type failingStore struct {
	sessions.Store
}

func (failingStore) ListByOwner(context.Context, string) ([]session.Session, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFailureIsInternal(t *testing.T) {
	svc := sessions.NewService(failingStore{})

	_, err := svc.ListMine(context.Background(), "owner")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
