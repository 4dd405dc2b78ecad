package appointment

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/pagination"
	"github.com/vitacare/portal/pkg/wizard"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc     *Service
	wizards *wizard.Handler
}

func NewHandler(svc *Service, wizards *wizard.Handler) *Handler {
	return &Handler{svc: svc, wizards: wizards}
}

// RegisterRoutes mounts booking and appointment routes; api must carry the
// session guard.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/bookings", h.wizards.Start(BookingFlow))
	api.GET("/bookings/slots", h.Slots)
	api.GET("/appointments", h.List)
	api.GET("/appointments/export.xlsx", h.Export)
	api.POST("/appointments/:id/cancel", h.Cancel)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	statuses, err := ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f := ListFilter{Statuses: statuses}
	if up, _ := strconv.ParseBool(c.QueryParam("upcoming")); up {
		f = h.svc.UpcomingFilter()
		if statuses != nil {
			f.Statuses = statuses
		}
	}

	pg := pagination.FromContext(c).WithSort(c, SortFields, DefaultSort)
	items, total, err := h.svc.List(ctx, auth.PatientIDFromContext(ctx), f, pg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list appointments")
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Slots reports the dates and times a doctor can be booked for; date is
// optional and narrows the times.
func (h *Handler) Slots(c echo.Context) error {
	id, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	doc, err := h.svc.doctors.GetDoctor(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load doctor")
	}
	resp := echo.Map{"dates": BookingDates(h.svc.now())}
	if date := c.QueryParam("date"); date != "" {
		resp["date"] = date
		resp["times"] = DoctorSlots(doc, date)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	a, err := h.svc.Cancel(ctx, auth.PatientIDFromContext(ctx), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to cancel appointment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Export(c echo.Context) error {
	ctx := c.Request().Context()
	var buf bytes.Buffer
	if err := h.svc.Export(ctx, auth.PatientIDFromContext(ctx), &buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export appointments")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="appointments.xlsx"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
