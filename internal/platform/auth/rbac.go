package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

// RedirectUnlessStaff keeps customers out of the admin area. Anonymous
// requests go to the login page and non-staff users to fallback; on API
// routes both are answered with 401 and 403 instead.
func RedirectUnlessStaff(fallback string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := account.UserFromContext(c.Request().Context())
			api := IsAPIPath(c.Request().URL.Path)
			switch {
			case u == nil && api:
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			case u == nil:
				return c.Redirect(http.StatusSeeOther, LoginPath)
			case u.SystemRole.Staff():
				return next(c)
			case api:
				return echo.NewHTTPError(http.StatusForbidden, "staff only")
			}
			return c.Redirect(http.StatusSeeOther, fallback)
		}
	}
}

// RequireSystemRole returns middleware that checks the user holds one of roles.
func RequireSystemRole(roles ...account.SystemRole) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := account.UserFromContext(c.Request().Context())
			if u == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			for _, r := range roles {
				if u.SystemRole == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}
