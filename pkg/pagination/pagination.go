package pagination

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps the per_page query parameter.
const MaxPerPage = 100

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: 20,
		Offset:  0,
	}
}

// FromRequest extracts pagination parameters from an HTTP request. Invalid
// values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= MaxPerPage {
			p.PerPage = v
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// Limit is the number of rows to fetch for the page. It is one more than
// PerPage so that NewResult can tell whether a next page exists.
func (p Params) Limit() int {
	return p.PerPage + 1
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data    []T  `json:"data"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewResult creates a paginated result from rows fetched with params.Limit().
// The extra row, if present, is dropped.
func NewResult[T any](rows []T, params Params) Result[T] {
	hasNext := len(rows) > params.PerPage
	if hasNext {
		rows = rows[:params.PerPage]
	}
	if rows == nil {
		rows = []T{}
	}

	return Result[T]{
		Data:    rows,
		Page:    params.Page,
		PerPage: params.PerPage,
		HasNext: hasNext,
		HasPrev: params.Page > 1,
	}
}
