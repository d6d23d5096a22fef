package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

const (
	DashboardPath = "/dashboard"
	PendingPath   = "/dashboard/pending"
)

// Decision is the gate's verdict for one request.
type Decision struct {
	Allow      bool
	RedirectTo string
}

var allow = Decision{Allow: true}

// Gate blocks the dashboard while the user's working facility is not ACTIVE.
//
// With the "first" policy only the first working clinic membership and the
// first working center membership are consulted, clinic first. With
// "strict" every working membership must be ACTIVE.
type Gate struct {
	Policy string
}

func NewGate(policy string) *Gate {
	if policy != config.GatePolicyStrict {
		policy = config.GatePolicyFirst
	}
	return &Gate{Policy: policy}
}

func (g *Gate) Check(u *account.AppUser, path string) Decision {
	if !underPath(path, DashboardPath) || underPath(path, PendingPath) {
		return allow
	}
	// Anonymous requests are RequireUser's concern.
	if u == nil || u.SystemRole.Staff() {
		return allow
	}

	if g.Policy == config.GatePolicyStrict {
		return checkAll(u)
	}
	return checkFirst(u)
}

// Cleared reports whether u may use the dashboard right now.
func (g *Gate) Cleared(u *account.AppUser) bool {
	return g.Check(u, DashboardPath).Allow
}

func checkFirst(u *account.AppUser) Decision {
	if m, ok := u.WorkingClinic(); ok && m.Clinic.Status != account.StatusActive {
		return pending()
	}
	if m, ok := u.WorkingCenter(); ok && m.Center.Status != account.StatusActive {
		return pending()
	}
	return allow
}

func checkAll(u *account.AppUser) Decision {
	for _, m := range u.ClinicMemberships {
		if m.Clinic.Present() && m.Role.Working() && m.Clinic.Status != account.StatusActive {
			return pending()
		}
	}
	for _, m := range u.CenterMemberships {
		if m.Center.Present() && m.Role.Working() && m.Center.Status != account.StatusActive {
			return pending()
		}
	}
	return allow
}

func pending() Decision {
	return Decision{RedirectTo: PendingPath}
}

func underPath(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// SubscriptionGate applies g to every request. It must run after Identity
// and RequireUser. Page routes are redirected with 303; API routes get 403
// with the redirect target in the body.
func SubscriptionGate(g *Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			d := g.Check(account.UserFromContext(c.Request().Context()), path)
			if d.Allow {
				return next(c)
			}
			if IsAPIPath(path) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"message":  "facility subscription is not active",
					"redirect": d.RedirectTo,
				})
			}
			return c.Redirect(http.StatusSeeOther, d.RedirectTo)
		}
	}
}
