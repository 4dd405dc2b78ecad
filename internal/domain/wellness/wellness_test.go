package wellness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type mockTips struct {
	items []*Tip
	err   error
}

func (m *mockTips) Latest(_ context.Context, limit int) ([]*Tip, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.items) > limit {
		return m.items[:limit], nil
	}
	return m.items, nil
}

func (m *mockTips) Create(_ context.Context, t *Tip) error {
	m.items = append(m.items, t)
	return nil
}

func TestComputeBMI(t *testing.T) {
	tests := []struct {
		weight, height float64
		value          float64
		category       string
	}{
		{50, 175, 16.3, Underweight},
		{70, 175, 22.9, Normal},
		{80, 175, 26.1, Overweight},
		{100, 175, 32.7, Obese},
		{56.6, 175, 18.5, Normal},
		{91.8, 175, 30, Obese},
	}
	for _, tt := range tests {
		got := ComputeBMI(tt.weight, tt.height)
		if got.Value != tt.value || got.Category != tt.category {
			t.Errorf("ComputeBMI(%v, %v) = %+v, want %v %s", tt.weight, tt.height, got, tt.value, tt.category)
		}
	}
}

func TestPackageDiscount(t *testing.T) {
	if d := Packages[0].Discount(); d != 33 {
		t.Errorf("expected 33%% off the basic package, got %d", d)
	}
	if d := (Package{Price: 10}).Discount(); d != 0 {
		t.Errorf("expected 0 without an original price, got %d", d)
	}
}

func TestTips_FallsBack(t *testing.T) {
	svc := NewService(&mockTips{}, zerolog.Nop())
	if got := svc.Tips(context.Background()); len(got) != 6 || got[0].Title != "Stay Hydrated" {
		t.Errorf("expected six default tips, got %d", len(got))
	}

	svc = NewService(&mockTips{err: errors.New("db down")}, zerolog.Nop())
	if got := svc.Tips(context.Background()); len(got) != 6 {
		t.Errorf("expected defaults on error, got %d", len(got))
	}

	published := &mockTips{items: []*Tip{{Title: "Walk more"}}}
	svc = NewService(published, zerolog.Nop())
	if got := svc.Tips(context.Background()); len(got) != 1 || got[0].Title != "Walk more" {
		t.Errorf("expected published tips, got %+v", got)
	}
}

func TestSeedTips(t *testing.T) {
	repo := &mockTips{}
	svc := NewService(repo, zerolog.Nop())
	n, err := svc.SeedTips(context.Background())
	if err != nil || n != 6 {
		t.Fatalf("seed: %d %v", n, err)
	}
	n, err = svc.SeedTips(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second seed should be a no-op, got %d %v", n, err)
	}
}

func TestHandler_BMI(t *testing.T) {
	h := NewHandler(NewService(&mockTips{}, zerolog.Nop()))
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/wellness/bmi?weight=70&height=175", nil), rec)
	if err := h.BMI(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"value":22.9`) || !strings.Contains(rec.Body.String(), `"category":"Normal"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	for _, q := range []string{"weight=abc&height=175", "weight=70&height=0", "height=175"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/wellness/bmi?"+q, nil), httptest.NewRecorder())
		if he, ok := h.BMI(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", q, he)
		}
	}
}

func TestHandler_Packages(t *testing.T) {
	h := NewHandler(NewService(&mockTips{}, zerolog.Nop()))
	rec := httptest.NewRecorder()
	if err := h.Packages(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"discount_percent":38`) {
		t.Errorf("expected the comprehensive package discount, got %s", rec.Body.String())
	}
}

func TestPublish(t *testing.T) {
	repo := &mockTips{}
	svc := NewService(repo, zerolog.Nop())
	if err := svc.Publish(context.Background(), &Tip{Title: "  ", Content: "x"}); !errors.Is(err, ErrInvalidTip) {
		t.Errorf("expected ErrInvalidTip, got %v", err)
	}
	if err := svc.Publish(context.Background(), &Tip{Title: " Walk ", Content: "Daily."}); err != nil {
		t.Fatal(err)
	}
	if len(repo.items) != 1 || repo.items[0].Title != "Walk" {
		t.Errorf("expected trimmed tip stored, got %+v", repo.items)
	}
}
