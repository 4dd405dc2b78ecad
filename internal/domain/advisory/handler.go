package advisory

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
)

const maxMessageLen = 2000

type Handler struct {
	chat *Chat
}

func NewHandler(chat *Chat) *Handler {
	return &Handler{chat: chat}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/advisory/triage", h.Triage)
	api.POST("/advisory/ask", h.Ask)
}

type messageRequest struct {
	Message string `json:"message"`
}

func readMessage(c echo.Context) (string, error) {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if utf8.RuneCountInString(msg) > maxMessageLen {
		return "", echo.NewHTTPError(http.StatusBadRequest, "message is too long")
	}
	return msg, nil
}

func (h *Handler) Triage(c echo.Context) error {
	msg, err := readMessage(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.chat.Triage(c.Request().Context(), msg))
}

func (h *Handler) Ask(c echo.Context) error {
	msg, err := readMessage(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.chat.Ask(c.Request().Context(), msg))
}
