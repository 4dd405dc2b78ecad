package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// OwnerFunc resolves the account that owns drafts from the request.
type OwnerFunc func(c echo.Context) (string, error)

type Handler struct {
	drivers map[string]Driver
	owner   OwnerFunc
}

func NewHandler(owner OwnerFunc, drivers ...Driver) *Handler {
	h := &Handler{drivers: make(map[string]Driver), owner: owner}
	for _, d := range drivers {
		h.drivers[d.Name()] = d
	}
	return h
}

// RegisterRoutes mounts /wizards/<flow>/... for the named flows on g, so each
// group can carry the guard its flows need.
func (h *Handler) RegisterRoutes(g *echo.Group, flows ...string) {
	for _, name := range flows {
		d, ok := h.drivers[name]
		if !ok {
			panic("wizard: unknown flow " + name)
		}
		base := "/wizards/" + name
		g.POST(base, h.Start(name))
		g.GET(base+"/:id", h.wrap(noBody(d.Get)))
		g.PATCH(base+"/:id", h.wrap(d.Patch))
		g.POST(base+"/:id/advance", h.wrap(noBody(d.Advance)))
		g.POST(base+"/:id/retreat", h.wrap(noBody(d.Retreat)))
		g.POST(base+"/:id/submit", h.wrap(noBody(d.Submit)))
		g.POST(base+"/:id/reset", h.wrap(noBody(d.Reset)))
	}
}

// Start creates a draft of flow from the JSON body (which may be empty).
func (h *Handler) Start(flow string) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, ok := h.drivers[flow]
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown wizard")
		}
		owner, err := h.owner(c)
		if err != nil {
			return err
		}
		body, err := readBody(c)
		if err != nil {
			return err
		}
		v, err := d.Create(c.Request().Context(), owner, body)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(http.StatusCreated, v)
	}
}

type action func(ctx context.Context, owner, id string, body json.RawMessage) (*View, error)

func noBody(fn func(ctx context.Context, owner, id string) (*View, error)) action {
	return func(ctx context.Context, owner, id string, _ json.RawMessage) (*View, error) {
		return fn(ctx, owner, id)
	}
}

func (h *Handler) wrap(fn action) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, err := h.owner(c)
		if err != nil {
			return err
		}
		body, err := readBody(c)
		if err != nil {
			return err
		}
		v, err := fn(c.Request().Context(), owner, c.Param("id"), body)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(http.StatusOK, v)
	}
}

func readBody(c echo.Context) (json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	if len(data) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(data) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON object")
	}
	return data, nil
}

// HTTPError maps wizard errors to responses. Errors that already are
// *echo.HTTPError (flow-specific conflicts) pass through.
func HTTPError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "wizard draft not found")
	case errors.Is(err, ErrStepIncomplete), errors.Is(err, ErrNoPrevious):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "wizard submission failed")
	}
}
