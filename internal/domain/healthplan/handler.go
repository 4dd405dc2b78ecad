package healthplan

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/health-plans/goals", h.Goals)
	api.POST("/health-plans", h.Generate)
	api.GET("/health-plans", h.List)
	api.GET("/health-plans/active", h.Active)
	api.POST("/health-plans/:id/tasks/:taskId/toggle", h.ToggleTask)
}

func (h *Handler) Goals(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"data": Goals})
}

type generateRequest struct {
	Goal string `json:"goal"`
}

func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	plan, err := h.svc.Generate(ctx, auth.PatientIDFromContext(ctx), req.Goal)
	switch {
	case errors.Is(err, ErrInvalidGoal):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, advisory.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, h.svc.adapter.Unavailable())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create health plan")
	}
	return c.JSON(http.StatusCreated, plan)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c).WithSort(c, map[string]bool{"created_at": true, "progress": true}, DefaultSort)
	items, total, err := h.svc.List(ctx, auth.PatientIDFromContext(ctx), pg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list health plans")
	}
	if items == nil {
		items = []*HealthPlan{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Active(c echo.Context) error {
	ctx := c.Request().Context()
	plan, err := h.svc.Active(ctx, auth.PatientIDFromContext(ctx))
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no active health plan")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load health plan")
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) ToggleTask(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	ctx := c.Request().Context()
	plan, err := h.svc.ToggleTask(ctx, auth.PatientIDFromContext(ctx), planID, taskID)
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update task")
	}
	return c.JSON(http.StatusOK, plan)
}
