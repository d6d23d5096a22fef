package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/internal/platform/session"
)

const LoginPath = "/login"

// Resolver turns a raw session token into a hydrated user. A nil user with a
// nil error means the token matched nobody.
type Resolver interface {
	ResolveSession(ctx context.Context, token string) (*account.AppUser, error)
}

type IdentityConfig struct {
	Resolver Resolver
	Session  session.Carrier
	Logger   zerolog.Logger
	// Skipper bypasses resolution entirely, e.g. for health checks.
	Skipper middleware.Skipper
}

// Identity resolves the session cookie once per request and attaches the
// user to the request context. Anonymous requests pass through untouched; a
// resolver failure is a 500, never an anonymous request.
func Identity(cfg IdentityConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			token := cfg.Session.Token(c)
			if token == "" {
				return next(c)
			}

			u, err := cfg.Resolver.ResolveSession(c.Request().Context(), token)
			if err != nil {
				rid, _ := c.Get("request_id").(string)
				cfg.Logger.Error().Err(err).Str("request_id", rid).Msg("session resolution failed")
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
			if u == nil {
				return next(c)
			}

			c.Set("user_id", u.ID.String())
			c.SetRequest(c.Request().WithContext(account.WithUser(c.Request().Context(), u)))
			return next(c)
		}
	}
}

// IsAPIPath reports whether path is answered with status codes rather than
// redirects: JSON endpoints and anything under an /api/ segment.
func IsAPIPath(path string) bool {
	return strings.HasSuffix(path, ".json") || strings.Contains(path, "/api/")
}

// RequireUser rejects anonymous requests: page routes are redirected to the
// login page, API routes get 401.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if account.UserFromContext(c.Request().Context()) != nil {
				return next(c)
			}
			if IsAPIPath(c.Request().URL.Path) {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			return c.Redirect(http.StatusSeeOther, LoginPath)
		}
	}
}
