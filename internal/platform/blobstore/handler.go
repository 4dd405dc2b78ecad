package blobstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// OwnerFunc returns the owner id of the current request, or "" when none.
type OwnerFunc func(c echo.Context) string

// Handler serves stored files to their owner only.
type Handler struct {
	store BlobStore
	owner OwnerFunc
}

func NewHandler(store BlobStore, owner OwnerFunc) *Handler {
	return &Handler{store: store, owner: owner}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/files/:id", h.Download)
}

// Download streams the blob. Another owner's blob is reported as missing.
func (h *Handler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	data, meta, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if owner := h.owner(c); owner == "" || owner != meta.Owner {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename=%q`, meta.FileName))
	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.Blob(http.StatusOK, meta.ContentType, data)
}
