// Package sessions owns the session lifecycle: create-or-update saves,
// draft/published transitions, ownership scoping and the public listing.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/geocoder89/wellnesshub/internal/cache"
	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/geocoder89/wellnesshub/internal/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type Store interface {
	Insert(ctx context.Context, s session.Session) (session.Session, error)
	UpdateOwned(ctx context.Context, ownerID, id string, f session.Fields, publish bool, now time.Time) (session.Session, error)
	GetOwned(ctx context.Context, ownerID, id string) (session.Session, error)
	ListByOwner(ctx context.Context, ownerID string) ([]session.Session, error)
	ListPublished(ctx context.Context) ([]session.Public, error)
}

// WriteRecorder is notified after every successful save.
type WriteRecorder interface {
	RecordSessionWrite(op string, status session.Status, created bool)
}

type Service struct {
	store   Store
	cache   cache.Store
	clock   clockwork.Clock
	metrics WriteRecorder
	log     *slog.Logger
}

type Option func(*Service)

func WithCache(c cache.Store) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithMetrics(m WriteRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: clockwork.NewRealClock(),
		log:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) ListPublished(ctx context.Context) ([]session.Public, error) {
	// the key is fixed before the store read; a write that lands in between
	// moves the version on and this result is cached under a dead key.
	key, cacheable := s.listingKey(ctx)

	if cacheable {
		if cached, ok := s.readCache(ctx, key); ok {
			return cached, nil
		}
	}

	items, err := s.store.ListPublished(ctx)
	if err != nil {
		return nil, apperr.Internal("Could not list sessions", err)
	}

	if cacheable {
		s.writeCache(ctx, key, items)
	}

	return items, nil
}

func (s *Service) ListMine(ctx context.Context, ownerID string) ([]session.Session, error) {
	items, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("Could not list sessions", err)
	}

	return items, nil
}

// GetMine reports a foreign session exactly like a missing one.
func (s *Service) GetMine(ctx context.Context, ownerID, id string) (session.Session, error) {
	if !utils.IsUUID(id) {
		return session.Session{}, errSessionNotFound()
	}

	out, err := s.store.GetOwned(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, errSessionNotFound()
		}
		return session.Session{}, apperr.Internal("Could not fetch session", err)
	}

	return out, nil
}

func (s *Service) SaveDraft(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error) {
	return s.save(ctx, ownerID, req, session.StatusDraft)
}

func (s *Service) Publish(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error) {
	return s.save(ctx, ownerID, req, session.StatusPublished)
}

// save inserts when req carries no id and updates the caller's record
// otherwise. target is the status a new record is born with; on update only
// publish changes status.
func (s *Service) save(ctx context.Context, ownerID string, req session.SaveRequest, target session.Status) (session.Session, error) {
	if !session.HasTitle(req.Title) {
		return session.Session{}, apperr.Validation("Title required")
	}

	fields := req.Fields()
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	publish := target == session.StatusPublished
	op := "save_draft"
	if publish {
		op = "publish"
	}

	var (
		out     session.Session
		err     error
		created bool
	)

	if req.ID == "" {
		created = true
		out, err = s.store.Insert(ctx, session.Session{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Title:     fields.Title,
			Tags:      fields.Tags,
			JSONURL:   fields.JSONURL,
			Status:    target,
			CreatedAt: now,
			UpdatedAt: now,
		})
	} else {
		if !utils.IsUUID(req.ID) {
			return session.Session{}, errSessionNotFound()
		}
		out, err = s.store.UpdateOwned(ctx, ownerID, req.ID, fields, publish, now)
	}

	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, errSessionNotFound()
		}
		return session.Session{}, apperr.Internal("Could not save session", err)
	}

	s.invalidate(ctx)

	if s.metrics != nil {
		s.metrics.RecordSessionWrite(op, out.Status, created)
	}

	s.log.DebugContext(ctx, "session saved",
		"op", op,
		"session_id", out.ID,
		"owner_id", ownerID,
		"status", out.Status,
		"created", created,
	)

	return out, nil
}

func errSessionNotFound() error {
	return apperr.NotFound("Session not found")
}

// Cache failures are logged and otherwise ignored; the store stays the
// source of truth.

func (s *Service) listingKey(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	raw, ok, err := s.cache.Get(ctx, utils.PublishedSessionsVersionKey)
	if err != nil {
		s.log.WarnContext(ctx, "published cache version read failed", "err", err)
		return "", false
	}

	var version int64
	if ok {
		version, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			s.log.WarnContext(ctx, "published cache version corrupt", "err", err)
			return "", false
		}
	}

	return utils.PublishedSessionsCacheKey(version), true
}

func (s *Service) readCache(ctx context.Context, key string) ([]session.Public, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WarnContext(ctx, "published cache read failed", "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var items []session.Public
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.WarnContext(ctx, "published cache decode failed", "err", err)
		return nil, false
	}

	return items, true
}

func (s *Service) writeCache(ctx context.Context, key string, items []session.Public) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.log.WarnContext(ctx, "published cache write failed", "err", err)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if _, err := s.cache.Incr(ctx, utils.PublishedSessionsVersionKey); err != nil {
		s.log.WarnContext(ctx, "published cache invalidation failed", "err", err)
	}
}
