package report

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitacare/portal/internal/platform/auth"
)

type fakeProfile struct{ id uuid.UUID }

func (p fakeProfile) ProfileID() uuid.UUID { return p.id }
func (p fakeProfile) IsOnboarded() bool    { return true }

func withPatient(req *http.Request, id uuid.UUID) *http.Request {
	s := &auth.Session{
		State:    auth.StateAuthenticated,
		Identity: &auth.Identity{Email: "ann@example.com"},
		Profile:  fakeProfile{id: id},
	}
	return req.WithContext(auth.WithSession(req.Context(), s))
}

func multipartBody(t *testing.T, fileName, reportType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if reportType != "" {
		_ = w.WriteField("report_type", reportType)
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("report body"))
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body, ct := multipartBody(t, "mri.dcm", "mri")
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set(echo.HeaderContentType, ct)
	req = withPatient(req, uuid.New())
	rec := httptest.NewRecorder()

	if err := h.Upload(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got MedicalReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ReportType != TypeMRI || got.FileType != "dcm" {
		t.Errorf("unexpected report %+v", got)
	}
}

func TestHandler_UploadBadType(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body, ct := multipartBody(t, "mri.dcm", "tarot")
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set(echo.HeaderContentType, ct)
	req = withPatient(req, uuid.New())

	err := h.Upload(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_UploadMissingFile(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(""))
	req = withPatient(req, uuid.New())
	err := h.Upload(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ListAndDelete(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	pid := uuid.New()

	m, err := svc.Upload(context.Background(), pid, "ann@example.com", Upload{FileName: "a.pdf", Content: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.Upload(context.Background(), uuid.New(), "bob@example.com", Upload{FileName: "b.pdf", Content: strings.NewReader("y")}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	req := withPatient(httptest.NewRequest(http.MethodGet, "/reports", nil), pid)
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	var page struct {
		Data  []MedicalReport `json:"data"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("expected only own report, got %+v", page)
	}

	req = withPatient(httptest.NewRequest(http.MethodDelete, "/", nil), pid)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	req = withPatient(httptest.NewRequest(http.MethodDelete, "/", nil), pid)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())
	err = h.Delete(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %v", err)
	}
}
