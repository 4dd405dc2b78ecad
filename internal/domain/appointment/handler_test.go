package appointment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/vitacare/portal/internal/platform/auth"
)

func asAnn(req *http.Request) *http.Request {
	s := &auth.Session{State: auth.StateAuthenticated, Identity: &auth.Identity{Email: ann.UserID}, Profile: ann}
	return req.WithContext(auth.WithSession(req.Context(), s))
}

func TestHandler_ListFilters(t *testing.T) {
	fx := newFixture()
	book(t, fx, "2026-03-11", "09:00 AM")
	c2 := book(t, fx, "2026-03-12", "09:00 AM")
	fx.repo.items[c2.ID].Status = StatusCancelled
	h := NewHandler(fx.svc, nil)
	e := echo.New()

	req := asAnn(httptest.NewRequest(http.MethodGet, "/appointments?status=cancelled", nil))
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	var page struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Data[0].ID != c2.ID {
		t.Fatalf("unexpected page %+v", page)
	}

	req = asAnn(httptest.NewRequest(http.MethodGet, "/appointments?upcoming=true", nil))
	rec = httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 {
		t.Errorf("expected 1 upcoming, got %d", page.Total)
	}

	req = asAnn(httptest.NewRequest(http.MethodGet, "/appointments?status=bogus", nil))
	err := h.List(e.NewContext(req, httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Cancel(t *testing.T) {
	fx := newFixture()
	a := book(t, fx, "2026-03-11", "09:00 AM")
	h := NewHandler(fx.svc, nil)
	e := echo.New()

	cancel := func(id string) (*httptest.ResponseRecorder, error) {
		req := asAnn(httptest.NewRequest(http.MethodPost, "/", nil))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id)
		return rec, h.Cancel(c)
	}

	rec, err := cancel(a.ID.String())
	if err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rec.Code, err)
	}
	_, err = cancel(a.ID.String())
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
	_, err = cancel(uuid.New().String())
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_Export(t *testing.T) {
	fx := newFixture()
	book(t, fx, "2026-03-11", "09:00 AM")
	book(t, fx, "2026-03-12", "03:30 PM")
	h := NewHandler(fx.svc, nil)
	e := echo.New()

	req := asAnn(httptest.NewRequest(http.MethodGet, "/appointments/export.xlsx", nil))
	rec := httptest.NewRecorder()
	if err := h.Export(e.NewContext(req, rec)); err != nil {
		t.Fatalf("export: %v", err)
	}
	if rec.Header().Get(echo.HeaderContentType) != xlsxContentType {
		t.Errorf("unexpected content type %q", rec.Header().Get(echo.HeaderContentType))
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Date" || rows[1][0] != "2026-03-12" || rows[1][2] != sarah.Name {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestHandler_Slots(t *testing.T) {
	fx := newFixture()
	h := NewHandler(fx.svc, nil)
	e := echo.New()
	req := asAnn(httptest.NewRequest(http.MethodGet, "/bookings/slots?doctor_id="+weekdayDoc.ID.String()+"&date=2026-03-11", nil))
	rec := httptest.NewRecorder()
	if err := h.Slots(e.NewContext(req, rec)); err != nil {
		t.Fatalf("slots: %v", err)
	}
	var got struct {
		Dates []string `json:"dates"`
		Times []string `json:"times"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Dates) != 7 || len(got.Times) != 2 {
		t.Errorf("unexpected slots %+v", got)
	}
}
