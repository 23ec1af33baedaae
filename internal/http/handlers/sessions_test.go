package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/geocoder89/wellnesshub/internal/http/handlers"
	"github.com/geocoder89/wellnesshub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Fake implementation of handlers.SessionService

type fakeSessions struct {
	listPublishedFn func(ctx context.Context) ([]session.Public, error)
	listMineFn      func(ctx context.Context, ownerID string) ([]session.Session, error)
	getMineFn       func(ctx context.Context, ownerID, id string) (session.Session, error)
	saveDraftFn     func(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error)
	publishFn       func(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error)
}

func (f *fakeSessions) ListPublished(ctx context.Context) ([]session.Public, error) {
	if f.listPublishedFn != nil {
		return f.listPublishedFn(ctx)
	}
	return []session.Public{}, nil
}

func (f *fakeSessions) ListMine(ctx context.Context, ownerID string) ([]session.Session, error) {
	if f.listMineFn != nil {
		return f.listMineFn(ctx, ownerID)
	}
	return []session.Session{}, nil
}

func (f *fakeSessions) GetMine(ctx context.Context, ownerID, id string) (session.Session, error) {
	if f.getMineFn != nil {
		return f.getMineFn(ctx, ownerID, id)
	}
	return session.Session{}, nil
}

func (f *fakeSessions) SaveDraft(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error) {
	if f.saveDraftFn != nil {
		return f.saveDraftFn(ctx, ownerID, req)
	}
	return session.Session{}, nil
}

func (f *fakeSessions) Publish(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error) {
	if f.publishFn != nil {
		return f.publishFn(ctx, ownerID, req)
	}
	return session.Session{}, nil
}

// withUser stands in for RequireAuth.
func withUser(id string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if id != "" {
			ctx.Set(middlewares.CtxUserID, id)
		}
		ctx.Next()
	}
}

func sessionsRouter(svc handlers.SessionService, userID string) *gin.Engine {
	h := handlers.NewSessionsHandler(svc, discardLogger())

	r := gin.New()
	r.GET("/sessions", h.ListPublished)

	my := r.Group("/my-sessions", withUser(userID))
	my.GET("", h.ListMine)
	my.GET("/:id", h.GetMine)
	my.POST("/save-draft", h.SaveDraft)
	my.POST("/publish", h.Publish)

	return r
}

type errorEnvelope struct {
	Error handlers.APIError `json:"error"`
}

func TestSaveDraft_PassesOwnerAndBody(t *testing.T) {
	owner := uuid.NewString()
	var gotOwner string
	var gotReq session.SaveRequest

	svc := &fakeSessions{
		saveDraftFn: func(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error) {
			gotOwner, gotReq = ownerID, req
			return session.Session{
				ID:      uuid.NewString(),
				OwnerID: ownerID,
				Title:   req.Title,
				Tags:    session.ParseTags(req.Tags),
				Status:  session.StatusDraft,
			}, nil
		},
	}

	body := `{"title":"Morning calm","tags":"breath, focus","jsonUrl":"https://cdn.example/s.json"}`
	req := httptest.NewRequest(http.MethodPost, "/my-sessions/save-draft", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	sessionsRouter(svc, owner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if gotOwner != owner {
		t.Fatalf("owner not passed through: got %q", gotOwner)
	}
	if gotReq.Title != "Morning calm" || gotReq.Tags != "breath, focus" || gotReq.JSONURL != "https://cdn.example/s.json" {
		t.Fatalf("unexpected request: %+v", gotReq)
	}

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"id", "ownerId", "title", "tags", "status", "createdAt", "updatedAt"} {
		if _, ok := out[key]; !ok {
			t.Fatalf("response missing %q: %s", key, w.Body.String())
		}
	}
	if out["status"] != "draft" {
		t.Fatalf("status = %v", out["status"])
	}
}

func TestSaveAndPublish_MapServiceErrors(t *testing.T) {
	owner := uuid.NewString()

	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
		wantKind string
	}{
		{"missing title", "/my-sessions/save-draft", apperr.Validation("Title required"), http.StatusBadRequest, "validation_error"},
		{"foreign id", "/my-sessions/save-draft", apperr.NotFound("Session not found"), http.StatusNotFound, "not_found"},
		{"publish missing title", "/my-sessions/publish", apperr.Validation("Title required"), http.StatusBadRequest, "validation_error"},
		{"store down", "/my-sessions/publish", errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := func(context.Context, string, session.SaveRequest) (session.Session, error) {
				return session.Session{}, tt.err
			}
			svc := &fakeSessions{saveDraftFn: fail, publishFn: fail}

			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(`{"title":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			sessionsRouter(svc, owner).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d body=%s", w.Code, tt.wantCode, w.Body.String())
			}

			var env errorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tt.wantKind {
				t.Fatalf("got code %q, want %q", env.Error.Code, tt.wantKind)
			}
			if tt.wantCode == http.StatusInternalServerError && env.Error.Message != "Server error" {
				t.Fatalf("internal cause leaked: %q", env.Error.Message)
			}
		})
	}
}

func TestMySessions_WithoutCallerIsUnauthorized(t *testing.T) {
	called := false
	svc := &fakeSessions{
		listMineFn: func(context.Context, string) ([]session.Session, error) {
			called = true
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/my-sessions", nil)
	w := httptest.NewRecorder()
	sessionsRouter(svc, "").ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
	if called {
		t.Fatal("service must not be reached without a caller")
	}
}

func TestGetMine_PassesPathID(t *testing.T) {
	owner := uuid.NewString()
	id := uuid.NewString()

	svc := &fakeSessions{
		getMineFn: func(_ context.Context, ownerID, gotID string) (session.Session, error) {
			if ownerID != owner || gotID != id {
				return session.Session{}, apperr.NotFound("Session not found")
			}
			return session.Session{ID: id, OwnerID: owner, Title: "Mine", Tags: []string{}, Status: session.StatusDraft}, nil
		},
	}

	r := sessionsRouter(svc, owner)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/my-sessions/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/my-sessions/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestListPublished_ETagRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := &fakeSessions{
		listPublishedFn: func(context.Context) ([]session.Public, error) {
			return []session.Public{{
				Session: session.Session{
					ID:        uuid.NewString(),
					OwnerID:   uuid.NewString(),
					Title:     "Public",
					Tags:      []string{"calm"},
					Status:    session.StatusPublished,
					CreatedAt: now,
					UpdatedAt: now,
				},
				OwnerEmail: "a@x.com",
			}}, nil
		},
	}

	r := sessionsRouter(svc, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header")
	}

	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0]["ownerEmail"] != "a@x.com" {
		t.Fatalf("unexpected listing: %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want 304", w.Code)
	}
}
