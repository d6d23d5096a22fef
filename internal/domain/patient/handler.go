package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/internal/platform/validate"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the patient routes on the gated dashboard group.
func (h *Handler) RegisterRoutes(dashboard *echo.Group) {
	dashboard.GET("/search.json", h.Search)
	dashboard.POST("/patients", h.Create)
	dashboard.GET("/patients/:id", h.Get)
	dashboard.GET("/patients/:id/access", h.ListAccess)
	dashboard.POST("/patients/:id/access", h.Grant)
	dashboard.DELETE("/patients/:id/access/:doctor_id", h.Revoke)
}

func (h *Handler) Search(c echo.Context) error {
	u := account.UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	out, err := h.svc.Search(c.Request().Context(), u, c.QueryParam("q"))
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Create(c echo.Context) error {
	u := account.UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), u, &req)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	u := account.UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.svc.Get(c.Request().Context(), u, id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListAccess(c echo.Context) error {
	u := account.UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	out, err := h.svc.ListAccess(c.Request().Context(), u, patientID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Grant(c echo.Context) error {
	u := account.UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req GrantRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	a, err := h.svc.Grant(c.Request().Context(), u, patientID, doctorID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Revoke(c echo.Context) error {
	u := account.UserFromContext(c.Request().Context())
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	if err := h.svc.Revoke(c.Request().Context(), u, patientID, doctorID); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNoFacilityAccess), errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrGrantNotFound), errors.Is(err, ErrDoctorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return h.internal(c, err)
}

func (h *Handler) internal(c echo.Context, err error) error {
	rid, _ := c.Get("request_id").(string)
	h.logger.Error().Err(err).Str("request_id", rid).Str("path", c.Path()).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
