package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseLimit(t *testing.T) {
	tests := map[string]int64{
		"1M":    1 << 20,
		"512K":  512 << 10,
		"10MB":  10 << 20,
		"1G":    1 << 30,
		"2048":  2048,
		"":      1 << 20,
		"bogus": 1 << 20,
	}
	for in, want := range tests {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func bodyLimitCall(contentType, body string) error {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	c := e.NewContext(req, httptest.NewRecorder())
	return BodyLimit("8", "64")(func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	})(c)
}

func TestBodyLimit_JSONUsesDefault(t *testing.T) {
	if err := bodyLimitCall(echo.MIMEApplicationJSON, "{}"); err != nil {
		t.Errorf("small body: unexpected error %v", err)
	}
	err := bodyLimitCall(echo.MIMEApplicationJSON, strings.Repeat("x", 20))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_MultipartUsesUploadLimit(t *testing.T) {
	if err := bodyLimitCall(echo.MIMEMultipartForm+"; boundary=x", strings.Repeat("x", 20)); err != nil {
		t.Errorf("upload under limit: unexpected error %v", err)
	}
	err := bodyLimitCall(echo.MIMEMultipartForm+"; boundary=x", strings.Repeat("x", 100))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_EnforcedWithoutContentLength(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/x", io.NopCloser(strings.NewReader(strings.Repeat("x", 20))))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())
	err := BodyLimit("8", "64")(func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	})(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 while reading, got %v", err)
	}
}
