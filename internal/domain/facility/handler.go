package facility

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/validate"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// CronPath is exempt from the request timeout; the sweep may run long.
const CronPath = "/api/cron/suspend-expired"

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterCronRoutes mounts the sweep trigger behind the shared cron secret.
func (h *Handler) RegisterCronRoutes(e *echo.Echo, secret string) {
	guard := auth.BearerSecret(secret)
	e.GET(CronPath, h.SuspendExpired, guard)
	e.POST(CronPath, h.SuspendExpired, guard)
}

// RegisterAdminRoutes mounts the facility routes on the staff-only group.
func (h *Handler) RegisterAdminRoutes(admin *echo.Group) {
	superOnly := auth.RequireSystemRole(account.SystemRoleSuperAdmin)
	admin.GET("/facilities", h.List)
	admin.PUT("/clinics/:id/status", h.SetClinicStatus, superOnly)
	admin.PUT("/centers/:id/status", h.SetCenterStatus, superOnly)
}

func (h *Handler) SuspendExpired(c echo.Context) error {
	res, err := h.svc.Sweep(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	h.logger.Info().
		Int64("clinics", res.SuspendedClinics).
		Int64("centers", res.SuspendedCenters).
		Msg("cron sweep finished")
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c echo.Context) error {
	f := ListFilter{
		Kind:   Kind(c.QueryParam("kind")),
		Status: account.Status(c.QueryParam("status")),
		Name:   c.QueryParam("name"),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be clinic or medical_center")
	}
	if f.Status != "" && !f.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be PENDING, ACTIVE or SUSPENDED")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks("/admin/facilities"))
}

func (h *Handler) SetClinicStatus(c echo.Context) error {
	return h.setStatus(c, h.svc.SetClinicStatus)
}

func (h *Handler) SetCenterStatus(c echo.Context) error {
	return h.setStatus(c, h.svc.SetCenterStatus)
}

type statusSetter func(ctx context.Context, id uuid.UUID, req *StatusUpdate) (*Facility, error)

func (h *Handler) setStatus(c echo.Context, set statusSetter) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req StatusUpdate
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	f, err := set(c.Request().Context(), id, &req)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return h.internal(c, err)
	}

	u := account.UserFromContext(c.Request().Context())
	ev := h.logger.Info().Str("facility_id", f.ID.String()).Str("kind", string(f.Kind)).Str("status", string(f.Status))
	if u != nil {
		ev = ev.Str("by", u.ID.String())
	}
	ev.Msg("facility status changed")
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) internal(c echo.Context, err error) error {
	rid, _ := c.Get("request_id").(string)
	h.logger.Error().Err(err).Str("request_id", rid).Str("path", c.Path()).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
