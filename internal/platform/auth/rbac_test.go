package auth

import (
	"net/http"
	"testing"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

func TestRedirectUnlessStaff(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		user     *account.AppUser
		wantCode int
		wantLoc  string
	}{
		{"anonymous page", "/admin", nil, http.StatusSeeOther, LoginPath},
		{"customer page", "/admin", customer([]member{{"OWNER", active}}, nil), http.StatusSeeOther, "/dashboard"},
		{"super admin", "/admin", user(account.SystemRoleSuperAdmin, nil, nil), http.StatusOK, ""},
		{"support agent", "/admin/facilities", user(account.SystemRoleSupportAgent, nil, nil), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newCtx(http.MethodGet, tt.path, tt.user)
			if err := RedirectUnlessStaff("/dashboard")(okHandler)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("expected location %q, got %q", tt.wantLoc, loc)
			}
		})
	}
}

func TestRedirectUnlessStaff_APICodes(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/admin/api/stats.json", nil)
	if code := httpCode(t, RedirectUnlessStaff("/dashboard")(okHandler)(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}

	c, _ = newCtx(http.MethodGet, "/admin/api/stats.json", customer(nil, nil))
	if code := httpCode(t, RedirectUnlessStaff("/dashboard")(okHandler)(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestRequireSystemRole(t *testing.T) {
	mw := RequireSystemRole(account.SystemRoleSuperAdmin)

	c, rec := newCtx(http.MethodPost, "/admin/treatments", user(account.SystemRoleSuperAdmin, nil, nil))
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, _ = newCtx(http.MethodPost, "/admin/treatments", user(account.SystemRoleSupportAgent, nil, nil))
	err := mw(okHandler)(c)
	if code := httpCode(t, err); code != http.StatusForbidden {
		t.Errorf("expected 403 for support agent, got %d", code)
	}

	c, _ = newCtx(http.MethodPost, "/admin/treatments", nil)
	if code := httpCode(t, mw(okHandler)(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous, got %d", code)
	}
}
