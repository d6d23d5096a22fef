package treatment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/validate"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterDashboardRoutes mounts the read-only catalog on the gated dashboard group.
func (h *Handler) RegisterDashboardRoutes(dashboard *echo.Group) {
	dashboard.GET("/api/treatment-groups.json", h.ListGroups)
	dashboard.GET("/api/treatment.json/:id", h.ListByGroup)
}

// RegisterAdminRoutes mounts catalog maintenance on the staff group. Writes
// are limited to super admins.
func (h *Handler) RegisterAdminRoutes(admin *echo.Group) {
	superOnly := auth.RequireSystemRole(account.SystemRoleSuperAdmin)
	admin.GET("", h.Catalog)
	admin.POST("/treatment-groups", h.CreateGroup, superOnly)
	admin.DELETE("/treatment-groups/:id", h.DeleteGroup, superOnly)
	admin.POST("/treatments", h.CreateTreatment, superOnly)
	admin.DELETE("/treatments/:id", h.DeleteTreatment, superOnly)
}

func (h *Handler) ListGroups(c echo.Context) error {
	groups, err := h.svc.Groups(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *Handler) ListByGroup(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid group ID")
	}
	out, err := h.svc.TreatmentsInGroup(c.Request().Context(), groupID)
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Catalog(c echo.Context) error {
	groups, err := h.svc.Catalog(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"groups": groups})
}

func (h *Handler) CreateGroup(c echo.Context) error {
	var req CreateGroupRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	g, err := h.svc.CreateGroup(c.Request().Context(), &req)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) DeleteGroup(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing ID")
	}
	if err := h.svc.DeleteGroup(c.Request().Context(), id); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateTreatment(c echo.Context) error {
	var req CreateTreatmentRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.svc.CreateTreatment(c.Request().Context(), &req)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) DeleteTreatment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing ID")
	}
	if err := h.svc.DeleteTreatment(c.Request().Context(), id); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrGroupNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateName):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return h.internal(c, err)
}

func (h *Handler) internal(c echo.Context, err error) error {
	rid, _ := c.Get("request_id").(string)
	h.logger.Error().Err(err).Str("request_id", rid).Str("path", c.Path()).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
