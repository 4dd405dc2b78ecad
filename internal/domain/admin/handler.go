package admin

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/domain/emergency"
	"github.com/vitacare/portal/internal/domain/wellness"
	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/jobs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admin")

	// Dispatch staff
	staff := g.Group("", auth.RequireRole(auth.RoleDispatcher))
	staff.GET("/overview", h.Overview)
	staff.POST("/emergency/:id/cancel", h.CancelDispatch)

	// Admin only
	ops := g.Group("", auth.RequireRole(auth.RoleAdmin))
	ops.POST("/jobs/:name/run", h.RunJob)
	ops.POST("/health-tips", h.PublishTip)
}

func actor(c echo.Context) string {
	return auth.UserIDFromContext(c.Request().Context())
}

func (h *Handler) Overview(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Overview())
}

func (h *Handler) RunJob(c echo.Context) error {
	st, err := h.svc.RunJob(c.Request().Context(), c.Param("name"), actor(c))
	if errors.Is(err, jobs.ErrUnknownJob) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"ok": false, "error": err.Error(), "stats": st})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "stats": st})
}

func (h *Handler) CancelDispatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	r, err := h.svc.CancelDispatch(c.Request().Context(), id, actor(c))
	switch {
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "emergency request not found")
	case errors.Is(err, emergency.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to cancel request")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) PublishTip(c echo.Context) error {
	var t wellness.Tip
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	err := h.svc.PublishTip(c.Request().Context(), &t)
	if errors.Is(err, wellness.ErrInvalidTip) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to publish tip")
	}
	return c.JSON(http.StatusCreated, t)
}
