package editor

import (
	"github.com/geocoder89/wellnesshub/internal/client"
	"github.com/geocoder89/wellnesshub/internal/domain/session"
)

// ErrorNotice is the current error notice; it stays until dismissed or until the
// next call starts.
func (e *Editor) ErrorNotice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errMsg
}

func (e *Editor) DismissError() {
	e.clearError()
}

// SuccessNotice is the current success notice. It clears itself after the notice
// TTL.
func (e *Editor) SuccessNotice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.success
}

func (e *Editor) clearError() {
	e.mu.Lock()
	e.errMsg = ""
	e.mu.Unlock()
}

func (e *Editor) setError(err error) {
	e.log.Debug("editor call failed", "err", err)

	e.mu.Lock()
	e.errMsg = err.Error()
	e.mu.Unlock()
}

func (e *Editor) setSuccessLocked(msg string) {
	e.successGen++
	gen := e.successGen
	e.success = msg

	e.clock.AfterFunc(e.ttl, func() {
		e.mu.Lock()
		cleared := gen == e.successGen && e.success != ""
		if cleared {
			e.success = ""
		}
		e.mu.Unlock()

		if cleared {
			e.changed()
		}
	})
}

// State accessors for the front end.

func (e *Editor) Page() Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

func (e *Editor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Credentials reports the logged in caller, if any.
func (e *Editor) Credentials() (client.Credentials, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.creds == nil {
		return client.Credentials{}, false
	}
	return *e.creds, true
}

func (e *Editor) Published() []session.Public {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]session.Public(nil), e.published...)
}

func (e *Editor) Mine() []session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]session.Session(nil), e.mine...)
}

// AutoSavePending reports whether an edit is waiting out the countdown.
func (e *Editor) AutoSavePending() bool {
	return e.autosave.Pending()
}
