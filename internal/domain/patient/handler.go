package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/blobstore"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/wizard"
)

type Handler struct {
	svc     *Service
	blobs   blobstore.BlobStore
	wizards *wizard.Handler
}

func NewHandler(svc *Service, blobs blobstore.BlobStore, wizards *wizard.Handler) *Handler {
	return &Handler{svc: svc, blobs: blobs, wizards: wizards}
}

// RegisterRoutes mounts the profile endpoints; api must carry the session guard.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patient", h.GetProfile)
	api.PUT("/patient", h.UpdateProfile)
}

// RegisterOnboardingRoutes mounts onboarding on a group that only requires
// an identity, since the patient does not exist yet.
func (h *Handler) RegisterOnboardingRoutes(g *echo.Group) {
	g.POST("/onboarding", h.wizards.Start(OnboardingFlow))
	g.POST("/onboarding/uploads", h.UploadOnboardingFile)
}

func (h *Handler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, auth.PatientIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var u ProfileUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	p, err := h.svc.UpdateProfile(ctx, auth.PatientIDFromContext(ctx), u)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		if errors.Is(err, ErrInvalidProfile) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update patient")
	}
	return c.JSON(http.StatusOK, p)
}

type uploadResponse struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	URL      string `json:"url"`
}

// UploadOnboardingFile stores a report file for the onboarding draft. The
// returned id goes into the draft's uploads list.
func (h *Handler) UploadOnboardingFile(c echo.Context) error {
	id := auth.IdentityFromContext(c.Request().Context())
	if id == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	meta, err := h.blobs.Put(c.Request().Context(), blobstore.Metadata{
		Owner:       id.Email,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}, f)
	switch {
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store file")
	}
	return c.JSON(http.StatusCreated, uploadResponse{
		ID:       meta.ID.String(),
		FileName: meta.FileName,
		FileType: meta.Extension(),
		URL:      meta.URL(),
	})
}
