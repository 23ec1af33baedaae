package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/geocoder89/wellnesshub/internal/auth"
	"github.com/gin-gonic/gin"
)

type AuthGate interface {
	Register(ctx context.Context, email, password string) (auth.Result, error)
	Login(ctx context.Context, email, password string) (auth.Result, error)
}

// AuthRecorder counts register/login outcomes; nil disables it.
type AuthRecorder interface {
	RecordAuthAttempt(action, result string)
}

type AuthHandler struct {
	gate    AuthGate
	metrics AuthRecorder
	log     *slog.Logger
}

func NewAuthHandler(gate AuthGate, metrics AuthRecorder, log *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, metrics: metrics, log: log}
}

// max counts runes; the gate enforces bcrypt's byte limit on top of it.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"max=254"`
	Password string `json:"password" binding:"max=72"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	res, err := h.gate.Register(cctx, req.Email, req.Password)
	h.record("register", err)

	if err != nil {
		RespondAppError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	res, err := h.gate.Login(cctx, req.Email, req.Password)
	h.record("login", err)

	if err != nil {
		RespondAppError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *AuthHandler) record(action string, err error) {
	if h.metrics == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
	}

	h.metrics.RecordAuthAttempt(action, result)
}
