package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
	Sort   Sort
}

// Sort is a single-column ordering parsed from a "-created_at" style expression.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads "field" (ascending) or "-field" (descending). Fields not
// in allowed fall back to def so callers can interpolate the result into SQL.
func ParseSort(expr string, allowed map[string]bool, def Sort) Sort {
	expr = strings.TrimSpace(expr)
	desc := strings.HasPrefix(expr, "-")
	field := strings.TrimPrefix(expr, "-")
	if field == "" || !allowed[field] {
		return def
	}
	return Sort{Field: field, Desc: desc}
}

// OrderBy renders the ORDER BY clause, with id as a tiebreaker.
func (s Sort) OrderBy() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", s.Field, dir, dir)
}

func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// FromContext extracts limit and offset from the echo context. Sort is left
// empty; handlers that sort call ParseSort with their own column whitelist.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// WithSort parses the "sort" query parameter against allowed.
func (p Params) WithSort(c echo.Context, allowed map[string]bool, def Sort) Params {
	p.Sort = ParseSort(c.QueryParam("sort"), allowed, def)
	return p
}

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// SQL returns the LIMIT and OFFSET clause for SQL queries.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Page slices an in-memory result set the same way LIMIT/OFFSET would.
func Page[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if p.Limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
