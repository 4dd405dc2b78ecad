package checkup

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/pkg/pagination"
)

type Handler struct {
	svc     *Service
	adapter *advisory.Adapter
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, adapter: svc.adapter}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/checkups/questions", h.Questions)
	api.POST("/checkups", h.Submit)
	api.GET("/checkups", h.List)
}

func (h *Handler) Questions(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"data": Questions})
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (h *Handler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	res, err := h.svc.Submit(ctx, auth.PatientIDFromContext(ctx), req.Answers)
	switch {
	case errors.Is(err, ErrInvalidAnswers):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, advisory.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, h.adapter.Unavailable())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record checkup")
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c).WithSort(c, map[string]bool{"created_at": true, "risk_score": true}, DefaultSort)
	items, total, err := h.svc.List(ctx, auth.PatientIDFromContext(ctx), pg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list checkups")
	}
	if items == nil {
		items = []*HealthCheckup{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
