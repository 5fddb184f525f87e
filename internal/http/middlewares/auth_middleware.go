package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/labsmonitor/internal/auth"
	"github.com/geocoder89/labsmonitor/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// UserResolver turns an access token into the account behind it.
// Keep this small interface so tests can fake it easily.
type UserResolver interface {
	Authenticate(ctx context.Context, accessToken string) (user.User, error)
}

type AuthMiddleware struct {
	users UserResolver
}

func NewAuthMiddleware(users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, raw, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		u, err := m.users.Authenticate(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
				return
			}
			abortJSON(c, http.StatusInternalServerError, "internal_error", "Could not authenticate request")
			return
		}

		c.Set(CtxUser, u)
		c.Set(CtxUserID, u.ID)

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
