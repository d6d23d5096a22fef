package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
	"github.com/clinicdesk/clinicdesk/internal/platform/session"
	"github.com/clinicdesk/clinicdesk/internal/platform/validate"
	"github.com/clinicdesk/clinicdesk/pkg/phone"
)

const msgWrongCredentials = "Wrong phone number or password"

// LoginThrottle limits login attempts per key.
type LoginThrottle interface {
	Allow(key string) (bool, time.Duration)
}

type Handler struct {
	svc      *Service
	session  session.Carrier
	logger   zerolog.Logger
	cleared  func(*AppUser) bool
	throttle LoginThrottle
}

func NewHandler(svc *Service, carrier session.Carrier, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, session: carrier, logger: logger, cleared: (*AppUser).HasActiveWorkingFacility}
}

// SetPendingCheck replaces the test the pending page uses to send a user
// back to the dashboard. Serve wires the subscription gate here so the two
// never disagree.
func (h *Handler) SetPendingCheck(fn func(*AppUser) bool) {
	h.cleared = fn
}

// SetLoginThrottle limits login attempts per target phone number, on top of
// whatever per-IP limit wraps the route.
func (h *Handler) SetLoginThrottle(t LoginThrottle) {
	h.throttle = t
}

// RegisterRoutes mounts the public auth routes on public and the identity
// views on dashboard. loginMW wraps only POST /login.
func (h *Handler) RegisterRoutes(public *echo.Group, dashboard *echo.Group, loginMW ...echo.MiddlewareFunc) {
	public.POST("/login", h.Login, loginMW...)
	public.POST("/logout", h.Logout)
	public.POST("/signup/clinic", h.SignupClinic)
	public.POST("/signup/medical-center", h.SignupMedicalCenter)

	dashboard.GET("", h.Dashboard)
	dashboard.GET("/pending", h.Pending)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	if h.throttle != nil {
		if ok, wait := h.throttle.Allow("phone:" + phone.Sanitize(req.Phone)); !ok {
			middleware.SetRetryAfter(c, wait)
			h.logger.Warn().Str("ip", c.RealIP()).Msg("login throttled for phone")
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
		}
	}

	u, token, err := h.svc.Login(c.Request().Context(), req.Phone, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, msgWrongCredentials)
	}
	if err != nil {
		return h.internal(c, err)
	}

	h.session.Set(c, token)
	return c.Redirect(http.StatusFound, LandingPath(Classify(u)))
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context(), h.session.Token(c)); err != nil {
		// The cookie is cleared regardless; a stale token row only lingers.
		h.logger.Error().Err(err).Msg("logout: clear session token")
	}
	h.session.Clear(c)
	return c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) SignupClinic(c echo.Context) error {
	var req ClinicSignupRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.SignupClinic(c.Request().Context(), &req)
	if err != nil {
		return h.signupError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) SignupMedicalCenter(c echo.Context) error {
	var req CenterSignupRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.SignupMedicalCenter(c.Request().Context(), &req)
	if err != nil {
		return h.signupError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// DashboardView is the body of GET /dashboard.
type DashboardView struct {
	User     *AppUser     `json:"user"`
	Identity IdentityType `json:"identity"`
}

func (h *Handler) Dashboard(c echo.Context) error {
	u := UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(http.StatusOK, DashboardView{User: u, Identity: Classify(u)})
}

// Pending explains why the dashboard is blocked. Users the pending check
// clears are sent back to the dashboard.
func (h *Handler) Pending(c echo.Context) error {
	u := UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	if h.cleared(u) {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return c.JSON(http.StatusOK, DashboardView{User: u, Identity: Classify(u)})
}

func (h *Handler) signupError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrPhoneTaken):
		return echo.NewHTTPError(http.StatusConflict, "phone number already registered")
	case errors.Is(err, ErrDuplicatePhone), errors.Is(err, ErrTooFewDoctors):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.internal(c, err)
}

func (h *Handler) internal(c echo.Context, err error) error {
	rid, _ := c.Get("request_id").(string)
	h.logger.Error().Err(err).Str("request_id", rid).Str("path", c.Path()).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
