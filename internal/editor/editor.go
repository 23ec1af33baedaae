// Package editor holds the client-side state of the session editor: which
// page is showing, the draft being edited, the auto-save countdown and the
// notices shown to the user.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/wellnesshub/internal/client"
	"github.com/geocoder89/wellnesshub/internal/debounce"
	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/jonboulle/clockwork"
)

type Page string

const (
	PageAuth       Page = "auth"
	PageDashboard  Page = "dashboard"
	PageMySessions Page = "my-sessions"
	PageEditor     Page = "editor"
)

const (
	DefaultAutoSaveDelay = 5 * time.Second
	DefaultNoticeTTL     = 2 * time.Second

	callTimeout = 10 * time.Second
)

var ErrNotLoggedIn = errors.New("not logged in")

// API is the part of client.Client the editor drives.
type API interface {
	Probe(ctx context.Context) error
	Register(ctx context.Context, email, password string) (client.Credentials, error)
	Login(ctx context.Context, email, password string) (client.Credentials, error)
	ListPublished(ctx context.Context) ([]session.Public, error)
	ListMine(ctx context.Context, creds client.Credentials) ([]session.Session, error)
	GetMine(ctx context.Context, creds client.Credentials, id string) (session.Session, error)
	SaveDraft(ctx context.Context, creds client.Credentials, req session.SaveRequest) (session.Session, error)
	Publish(ctx context.Context, creds client.Credentials, req session.SaveRequest) (session.Session, error)
}

type CredentialStore interface {
	Load() (client.Credentials, bool, error)
	Save(c client.Credentials) error
	Clear() error
}

// Draft is the form being edited. Tags stay the raw comma separated text
// the user typed; the server parses them.
type Draft struct {
	ID      string
	Title   string
	Tags    string
	JSONURL string
}

func (d Draft) request() session.SaveRequest {
	return session.SaveRequest{ID: d.ID, Title: d.Title, Tags: d.Tags, JSONURL: d.JSONURL}
}

type Options struct {
	AutoSaveDelay time.Duration
	NoticeTTL     time.Duration
	Clock         clockwork.Clock
	Store         CredentialStore
	Logger        *slog.Logger

	// OnChange runs after state changes that happen off the caller's
	// goroutine (auto-save results, notice expiry).
	OnChange func()
}

type Editor struct {
	api      API
	store    CredentialStore
	clock    clockwork.Clock
	log      *slog.Logger
	onChange func()
	ttl      time.Duration

	autosave *debounce.Debouncer

	mu        sync.Mutex
	creds     *client.Credentials
	page      Page
	draft     Draft
	draftGen  uint64
	published []session.Public
	mine      []session.Session

	errMsg     string
	success    string
	successGen uint64
}

func New(api API, opts Options) *Editor {
	if opts.AutoSaveDelay <= 0 {
		opts.AutoSaveDelay = DefaultAutoSaveDelay
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Editor{
		api:      api,
		store:    opts.Store,
		clock:    opts.Clock,
		log:      opts.Logger,
		onChange: opts.OnChange,
		ttl:      opts.NoticeTTL,
		page:     PageAuth,
	}
	e.autosave = debounce.New(opts.Clock, opts.AutoSaveDelay, e.autoSave)

	return e
}

// Start probes the server and restores stored credentials. A failed probe
// is only logged.
func (e *Editor) Start(ctx context.Context) {
	if err := e.api.Probe(ctx); err != nil {
		e.log.Warn("backend connection failed", "err", err)
	} else {
		e.log.Debug("backend connection successful")
	}

	if e.store == nil {
		return
	}

	creds, ok, err := e.store.Load()
	if err != nil {
		e.log.Warn("stored credentials unreadable", "err", err)
		return
	}
	if !ok {
		return
	}

	e.mu.Lock()
	e.creds = &creds
	e.page = PageDashboard
	e.mu.Unlock()

	_ = e.refreshPublished(ctx)
}

// Close cancels any pending auto-save. The editor must not be used after.
func (e *Editor) Close() {
	e.autosave.Stop()
}

func (e *Editor) Register(ctx context.Context, email, password string) error {
	return e.authenticate(ctx, e.api.Register, email, password, "Successfully registered!")
}

func (e *Editor) Login(ctx context.Context, email, password string) error {
	return e.authenticate(ctx, e.api.Login, email, password, "Successfully logged in!")
}

type authFunc func(ctx context.Context, email, password string) (client.Credentials, error)

func (e *Editor) authenticate(ctx context.Context, fn authFunc, email, password, notice string) error {
	e.clearError()

	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	creds, err := fn(cctx, email, password)
	cancel()

	if err != nil {
		e.setError(err)
		return err
	}

	if e.store != nil {
		if err := e.store.Save(creds); err != nil {
			e.setError(err)
		}
	}

	e.mu.Lock()
	e.creds = &creds
	e.page = PageDashboard
	e.setSuccessLocked(notice)
	e.mu.Unlock()

	return e.refreshPublished(ctx)
}

// Logout forgets the caller, the lists and any unsaved draft.
func (e *Editor) Logout() {
	e.autosave.Cancel()

	e.mu.Lock()
	e.creds = nil
	e.page = PageAuth
	e.published = nil
	e.mine = nil
	e.resetDraftLocked()
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.Clear(); err != nil {
			e.setError(err)
		}
	}
}

// Navigate switches page, refreshing the list the page shows. Without
// credentials every page resolves to PageAuth.
func (e *Editor) Navigate(ctx context.Context, p Page) error {
	// the editor is only entered fresh here; EditSession seeds it
	if p == PageEditor {
		return e.NewSession()
	}

	e.mu.Lock()
	if e.creds == nil {
		e.page = PageAuth
		e.mu.Unlock()
		return ErrNotLoggedIn
	}
	e.page = p
	e.mu.Unlock()

	switch p {
	case PageDashboard:
		return e.refreshPublished(ctx)
	case PageMySessions:
		return e.refreshMine(ctx)
	}
	return nil
}

// Cancel leaves the editor for the own-sessions page without refreshing it.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.creds == nil {
		e.page = PageAuth
		return
	}
	e.page = PageMySessions
}

// NewSession opens the editor on an empty draft.
func (e *Editor) NewSession() error {
	e.autosave.Cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.creds == nil {
		e.page = PageAuth
		return ErrNotLoggedIn
	}

	e.resetDraftLocked()
	e.page = PageEditor
	return nil
}

// EditSession opens the editor seeded from an existing session.
func (e *Editor) EditSession(s session.Session) error {
	e.autosave.Cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.creds == nil {
		e.page = PageAuth
		return ErrNotLoggedIn
	}

	e.draftGen++
	e.draft = Draft{
		ID:      s.ID,
		Title:   s.Title,
		Tags:    session.JoinTags(s.Tags),
		JSONURL: s.JSONURL,
	}
	e.page = PageEditor
	return nil
}

// EditByID loads one of the caller's sessions and opens it.
func (e *Editor) EditByID(ctx context.Context, id string) error {
	creds, err := e.credentials()
	if err != nil {
		return err
	}

	e.clearError()

	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	s, err := e.api.GetMine(cctx, creds, id)
	cancel()

	if err != nil {
		e.setError(err)
		return err
	}

	return e.EditSession(s)
}

func (e *Editor) SetTitle(v string) { e.edit(func(d *Draft) { d.Title = v }) }

func (e *Editor) SetTags(v string) { e.edit(func(d *Draft) { d.Tags = v }) }

func (e *Editor) SetJSONURL(v string) { e.edit(func(d *Draft) { d.JSONURL = v }) }

// edit applies one field change and rearms the auto-save countdown.
func (e *Editor) edit(fn func(d *Draft)) {
	e.mu.Lock()
	fn(&e.draft)
	e.mu.Unlock()

	e.autosave.Trigger()
}

// SaveDraft saves the draft now instead of waiting for the countdown.
func (e *Editor) SaveDraft(ctx context.Context) error {
	e.autosave.Cancel()
	return e.saveDraft(ctx)
}

func (e *Editor) autoSave() {
	e.mu.Lock()
	blank := !session.HasTitle(e.draft.Title) || e.creds == nil
	e.mu.Unlock()

	if blank {
		return
	}

	_ = e.saveDraft(context.Background())
	e.changed()
}

func (e *Editor) saveDraft(ctx context.Context) error {
	creds, err := e.credentials()
	if err != nil {
		return err
	}

	e.mu.Lock()
	req := e.draft.request()
	gen := e.draftGen
	e.errMsg = ""
	e.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	out, err := e.api.SaveDraft(cctx, creds, req)
	cancel()

	if err != nil {
		e.setError(err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// the user moved on to another draft while this one was in flight
	if gen != e.draftGen {
		e.log.Debug("dropping stale draft save", "session_id", out.ID)
		return nil
	}

	e.draft.ID = out.ID
	e.setSuccessLocked("Draft saved!")
	return nil
}

// Publish sends the draft as published, then resets it and returns to the
// dashboard.
func (e *Editor) Publish(ctx context.Context) error {
	creds, err := e.credentials()
	if err != nil {
		return err
	}

	e.mu.Lock()
	req := e.draft.request()
	e.errMsg = ""
	e.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	_, err = e.api.Publish(cctx, creds, req)
	cancel()

	if err != nil {
		e.setError(err)
		return err
	}

	e.autosave.Cancel()

	e.mu.Lock()
	e.resetDraftLocked()
	e.page = PageDashboard
	e.setSuccessLocked("Session published!")
	e.mu.Unlock()

	return e.refreshPublished(ctx)
}

func (e *Editor) refreshPublished(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	items, err := e.api.ListPublished(cctx)
	cancel()

	if err != nil {
		e.setError(err)
		return err
	}

	e.mu.Lock()
	e.published = items
	e.mu.Unlock()
	return nil
}

func (e *Editor) refreshMine(ctx context.Context) error {
	creds, err := e.credentials()
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	items, err := e.api.ListMine(cctx, creds)
	cancel()

	if err != nil {
		e.setError(err)
		return err
	}

	e.mu.Lock()
	e.mine = items
	e.mu.Unlock()
	return nil
}

func (e *Editor) credentials() (client.Credentials, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.creds == nil {
		e.page = PageAuth
		return client.Credentials{}, ErrNotLoggedIn
	}
	return *e.creds, nil
}

func (e *Editor) resetDraftLocked() {
	e.draftGen++
	e.draft = Draft{}
}

func (e *Editor) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}
