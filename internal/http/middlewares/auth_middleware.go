package middlewares

import (
	"strings"

	"github.com/geocoder89/wellnesshub/internal/actorctx"
	"github.com/geocoder89/wellnesshub/internal/apperr"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

type AuthMiddleware struct {
	gate Authenticator
}

func NewAuthMiddleware(gate Authenticator) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// RequireAuth rejects a request with no bearer token (401) or one the gate
// refuses (403), and otherwise stashes the caller's id on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.gate.Authenticate(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			appErr := apperr.From(err)
			c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{
				"error": gin.H{
					"code":      appErr.Kind,
					"message":   appErr.Message,
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		c.Set(CtxUserID, userID)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), userID))

		c.Next()
	}
}

// bearerToken returns the second word of an Authorization header, the way
// "Bearer <token>" is split. Anything shorter yields "".
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
