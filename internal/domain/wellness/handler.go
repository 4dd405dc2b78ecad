package wellness

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public wellness content.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/wellness")
	g.GET("/bmi", h.BMI)
	g.GET("/packages", h.Packages)
	g.GET("/diets", h.Diets)
	g.GET("/tips", h.Tips)
}

func (h *Handler) BMI(c echo.Context) error {
	weight, err := strconv.ParseFloat(c.QueryParam("weight"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "weight must be a number in kg")
	}
	height, err := strconv.ParseFloat(c.QueryParam("height"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "height must be a number in cm")
	}
	bmi, err := h.svc.BMI(weight, height)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bmi)
}

type packageView struct {
	Package
	Discount int `json:"discount_percent"`
}

func (h *Handler) Packages(c echo.Context) error {
	out := make([]packageView, len(Packages))
	for i, p := range Packages {
		out[i] = packageView{Package: p, Discount: p.Discount()}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

func (h *Handler) Diets(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"data": DietPlans})
}

func (h *Handler) Tips(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"data": h.svc.Tips(c.Request().Context())})
}
