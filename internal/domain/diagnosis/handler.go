package diagnosis

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/blobstore"
	"github.com/vitacare/portal/pkg/pagination"
)

var sortFields = map[string]bool{"created_at": true, "confidence": true}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/diagnoses", h.Analyze)
	api.GET("/diagnoses", h.List)
}

// Analyze takes a multipart "image" field.
func (h *Handler) Analyze(c echo.Context) error {
	ctx := c.Request().Context()
	s := auth.SessionFromContext(ctx)
	if s.PatientID() == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable image")
	}
	defer f.Close()

	res, err := h.svc.Analyze(ctx, s.PatientID(), s.Identity.Email, Image{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     f,
	})
	switch {
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrNotImage), errors.Is(err, blobstore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store image")
	}
	if res.Error {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c).WithSort(c, sortFields, DefaultSort)
	items, total, err := h.svc.List(ctx, auth.PatientIDFromContext(ctx), pg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list diagnoses")
	}
	if items == nil {
		items = []*AIDiagnosis{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
