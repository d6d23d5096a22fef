package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func newCtx(method, path string, u *account.AppUser) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if u != nil {
		req = req.WithContext(account.WithUser(context.Background(), u))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

type member struct {
	role   string
	status account.Status
}

func user(role account.SystemRole, clinics []member, centers []member) *account.AppUser {
	u := &account.AppUser{ID: uuid.New(), SystemRole: role, Status: account.StatusActive}
	for _, m := range clinics {
		u.ClinicMemberships = append(u.ClinicMemberships, account.ClinicMembership{
			ID:     uuid.New(),
			Role:   account.ClinicRole(m.role),
			Clinic: account.Facility{ID: uuid.New(), Name: "clinic", Status: m.status},
		})
	}
	for _, m := range centers {
		u.CenterMemberships = append(u.CenterMemberships, account.CenterMembership{
			ID:     uuid.New(),
			Role:   account.CenterRole(m.role),
			Center: account.Facility{ID: uuid.New(), Name: "center", Status: m.status},
		})
	}
	return u
}

func customer(clinics []member, centers []member) *account.AppUser {
	return user(account.SystemRoleCustomer, clinics, centers)
}
