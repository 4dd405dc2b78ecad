package summary

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/reporting"
)

type Handler struct {
	svc      *Service
	renderer *reporting.Renderer
}

func NewHandler(svc *Service, renderer *reporting.Renderer) *Handler {
	return &Handler{svc: svc, renderer: renderer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/summary", h.Get)
	api.GET("/summary.pdf", h.PDF)
}

func (h *Handler) generate(c echo.Context) (*Summary, error) {
	ctx := c.Request().Context()
	s, err := h.svc.Generate(ctx, auth.PatientIDFromContext(ctx))
	if errors.Is(err, advisory.ErrUnavailable) {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, h.svc.adapter.Unavailable())
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to generate summary")
	}
	return s, nil
}

func (h *Handler) Get(c echo.Context) error {
	s, err := h.generate(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) PDF(c echo.Context) error {
	s, err := h.generate(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.renderer.Render(Document(s), &buf); err != nil {
		h.svc.logger.Error().Err(err).Msg("render summary pdf")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render summary")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="medical-summary-%s.pdf"`, s.GeneratedAt.Format("2006-01-02")))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
