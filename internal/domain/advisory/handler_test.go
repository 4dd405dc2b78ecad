package advisory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_Triage(t *testing.T) {
	a, _ := newAdapter(`{"response":"Take rest.","severity":"Medium","should_seek_immediate_care":false}`, nil)
	h := NewHandler(NewChat(a))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/advisory/triage", strings.NewReader(`{"message":"mild fever"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Triage(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	var got Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Severity != "Medium" || got.Fallback {
		t.Errorf("unexpected reply %+v", got)
	}
}

func TestHandler_RejectsEmptyMessage(t *testing.T) {
	a, client := newAdapter(`{}`, nil)
	h := NewHandler(NewChat(a))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/advisory/ask", strings.NewReader(`{"message":"   "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.Ask(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if client.Calls() != 0 {
		t.Error("no completion should be requested")
	}
}
