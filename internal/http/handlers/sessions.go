package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/geocoder89/wellnesshub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type SessionService interface {
	ListPublished(ctx context.Context) ([]session.Public, error)
	ListMine(ctx context.Context, ownerID string) ([]session.Session, error)
	GetMine(ctx context.Context, ownerID, id string) (session.Session, error)
	SaveDraft(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error)
	Publish(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error)
}

type SessionsHandler struct {
	svc SessionService
	log *slog.Logger
}

func NewSessionsHandler(svc SessionService, log *slog.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, log: log}
}

func (h *SessionsHandler) ListPublished(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	items, err := h.svc.ListPublished(cctx)
	if err != nil {
		RespondAppError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

func (h *SessionsHandler) ListMine(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	items, err := h.svc.ListMine(cctx, ownerID)
	if err != nil {
		RespondAppError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *SessionsHandler) GetMine(ctx *gin.Context) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	s, err := h.svc.GetMine(cctx, ownerID, ctx.Param("id"))
	if err != nil {
		RespondAppError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, s)
}

func (h *SessionsHandler) SaveDraft(ctx *gin.Context) {
	h.save(ctx, h.svc.SaveDraft)
}

func (h *SessionsHandler) Publish(ctx *gin.Context) {
	h.save(ctx, h.svc.Publish)
}

type saveFunc func(ctx context.Context, ownerID string, req session.SaveRequest) (session.Session, error)

func (h *SessionsHandler) save(ctx *gin.Context, fn saveFunc) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	var req session.SaveRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	s, err := fn(cctx, ownerID, req)
	if err != nil {
		RespondAppError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, s)
}

// owner reads the caller set by RequireAuth; routes mounted without it are
// rejected rather than served anonymously.
func (h *SessionsHandler) owner(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondAppError(ctx, h.log, apperr.MissingCredential("Access token required"))
		return "", false
	}
	return id, true
}
