package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondAppError maps an error from the auth gate or session service onto
// the error envelope. Internal causes are logged, never returned.
func RespondAppError(ctx *gin.Context, log *slog.Logger, err error) {
	appErr := apperr.From(err)

	if appErr.Kind == apperr.KindInternal {
		log.ErrorContext(ctx.Request.Context(), "request failed",
			"route", ctx.FullPath(),
			"err", err,
		)
		RespondInternal(ctx, "Server error")
		return
	}

	RespondError(ctx, appErr.HTTPStatus(), string(appErr.Kind), appErr.Message, nil)
}

// requestContext bounds downstream work by d while still honouring client
// cancellation.
func requestContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
