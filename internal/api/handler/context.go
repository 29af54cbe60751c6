package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/api/middleware"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

// ctxClaims extracts the session claims injected by the Session middleware and
// fails fast when they are missing, which means the route was mounted without it.
func ctxClaims(c echo.Context) (userID string, role domain.Role, err error) {
	userID, _ = c.Get(middleware.UserIDKey).(string)
	role, _ = c.Get(middleware.RoleKey).(domain.Role)
	if userID == "" || !role.Valid() {
		return "", role, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, role, nil
}

// bindAndValidate decodes the body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
