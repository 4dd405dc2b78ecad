package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(q string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+q, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CapsLimit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=500&offset=40"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped to %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 40 {
		t.Errorf("expected offset 40, got %d", p.Offset)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := FromContext(ctxWithQuery("offset=-5"))
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestParseSort(t *testing.T) {
	allowed := map[string]bool{"created_at": true, "rating": true}
	def := Sort{Field: "created_at", Desc: true}

	tests := []struct {
		expr string
		want Sort
	}{
		{"-rating", Sort{Field: "rating", Desc: true}},
		{"rating", Sort{Field: "rating"}},
		{"", def},
		{"-", def},
		{"name; DROP TABLE patients", def},
	}
	for _, tt := range tests {
		if got := ParseSort(tt.expr, allowed, def); got != tt.want {
			t.Errorf("ParseSort(%q) = %+v, want %+v", tt.expr, got, tt.want)
		}
	}
}

func TestSort_OrderBy(t *testing.T) {
	if got := (Sort{Field: "created_at", Desc: true}).OrderBy(); got != "ORDER BY created_at DESC, id DESC" {
		t.Errorf("unexpected clause %q", got)
	}
	if got := (Sort{Field: "rating"}).String(); got != "rating" {
		t.Errorf("unexpected string %q", got)
	}
}

func TestWithSort(t *testing.T) {
	c := ctxWithQuery("sort=-appointment_date")
	p := FromContext(c).WithSort(c, map[string]bool{"appointment_date": true}, Sort{Field: "created_at"})
	if p.Sort.Field != "appointment_date" || !p.Sort.Desc {
		t.Errorf("unexpected sort %+v", p.Sort)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]int{1, 2}, 5, 2, 0)
	if !r.HasMore {
		t.Error("expected has_more")
	}
	r = NewResponse([]int{5}, 5, 2, 4)
	if r.HasMore {
		t.Error("expected no more")
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := Page(items, Params{Limit: 2, Offset: 1}); len(got) != 2 || got[0] != 2 {
		t.Errorf("unexpected page %v", got)
	}
	if got := Page(items, Params{Limit: 10, Offset: 9}); len(got) != 0 {
		t.Errorf("expected empty page, got %v", got)
	}
}
