package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/core/ports"
)

// Context keys set by Session.
const (
	UserIDKey  = "user_id"
	RoleKey    = "role"
	TokenIDKey = "token_id"
)

// Authenticator validates a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*ports.Claims, error)
}

// Session reads the session cookie, validates it and injects the claims into
// the context. Invalid or revoked sessions are returned as errors for the
// HTTP error handler to map.
func Session(auth Authenticator, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
			}

			claims, err := auth.Authenticate(c.Request().Context(), cookie.Value)
			if err != nil {
				return err
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(RoleKey, claims.Role)
			c.Set(TokenIDKey, claims.TokenID)

			return next(c)
		}
	}
}
