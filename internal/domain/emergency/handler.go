package emergency

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/websocket"
	"github.com/vitacare/portal/pkg/wizard"
)

type Handler struct {
	svc     *Service
	hub     *websocket.Hub
	wizards *wizard.Handler
}

func NewHandler(svc *Service, hub *websocket.Hub, wizards *wizard.Handler) *Handler {
	return &Handler{svc: svc, hub: hub, wizards: wizards}
}

// RegisterRoutes mounts the emergency routes except the stream; api must
// carry the session guard.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/emergency", h.wizards.Start(RequestFlow))
	api.GET("/emergency", h.List)
	api.GET("/emergency/nearby", h.Nearby)
	api.GET("/emergency/:id", h.Get)
	api.GET("/emergency/:id/history", h.History)
	api.POST("/emergency/:id/cancel", h.Cancel)
}

// RegisterStreamRoutes mounts the SSE feed on a group without the request
// timeout.
func (h *Handler) RegisterStreamRoutes(g *echo.Group) {
	g.GET("/emergency/:id/stream", h.Stream)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.List(ctx, auth.PatientIDFromContext(ctx), 20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list emergency requests")
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

// Nearby lists facilities around lat/lng, or around the fallback location
// when no coordinate is given.
func (h *Handler) Nearby(c echo.Context) error {
	d := RequestDraft{}
	if lat, lng := c.QueryParam("lat"), c.QueryParam("lng"); lat != "" || lng != "" {
		la, err1 := strconv.ParseFloat(lat, 64)
		lo, err2 := strconv.ParseFloat(lng, 64)
		if err1 != nil || err2 != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "lat and lng must be numbers")
		}
		d.Latitude, d.Longitude = &la, &lo
	}
	loc, approx, err := h.svc.ResolveLocation(d)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"location":             loc,
		"location_approximate": approx,
		"data":                 Nearby(loc),
	})
}

func (h *Handler) load(c echo.Context) (*Request, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	r, err := h.svc.Get(ctx, auth.PatientIDFromContext(ctx), id)
	if err != nil {
		return nil, notFoundOr500(err)
	}
	return r, nil
}

func notFoundOr500(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "emergency request not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to load emergency request")
}

// Get returns the request with its current tracking state.
func (h *Handler) Get(c echo.Context) error {
	r, err := h.load(c)
	if err != nil {
		return err
	}
	snap, err := h.svc.Snapshot(r)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build snapshot")
	}
	return c.JSON(http.StatusOK, echo.Map{"request": r, "tracking": snap.Data})
}

func (h *Handler) History(c echo.Context) error {
	r, err := h.load(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := h.svc.History(ctx, r.PatientID, r.ID)
	if err != nil {
		return notFoundOr500(err)
	}
	if items == nil {
		items = []*StatusChange{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	r, err := h.svc.Cancel(ctx, auth.PatientIDFromContext(ctx), id)
	if errors.Is(err, ErrInvalidTransition) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return notFoundOr500(err)
	}
	return c.JSON(http.StatusOK, r)
}

// Stream sends a snapshot then every update of the request as SSE, ending
// once the request arrives or is cancelled.
func (h *Handler) Stream(c echo.Context) error {
	r, err := h.load(c)
	if err != nil {
		return err
	}
	// The row is re-read after subscribing: anything persisted before that
	// shows up in the snapshot, anything later arrives as an event.
	snapshot := func() (*websocket.Event, error) {
		fresh, err := h.svc.Get(c.Request().Context(), r.PatientID, r.ID)
		if err != nil {
			return nil, notFoundOr500(err)
		}
		snap, err := h.svc.Snapshot(fresh)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to build snapshot")
		}
		return &snap, nil
	}
	return websocket.ServeSSE(c, h.hub, Topic(r.ID), snapshot, terminalEvent)
}

// terminalEvent reports whether evt carries an arrived or cancelled status.
func terminalEvent(evt websocket.Event) bool {
	if evt.Type == EventPosition {
		return false
	}
	var t Tracking
	if err := json.Unmarshal(evt.Data, &t); err != nil {
		return false
	}
	return IsTerminal(t.Status)
}
