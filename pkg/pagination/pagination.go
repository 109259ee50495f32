// Package pagination parses optional limit/offset query parameters. List
// endpoints return bare JSON arrays, so paging is opt-in: without ?limit the
// whole collection is returned.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	MaxLimit = 500

	// TotalCountHeader carries the unpaged row count on list responses.
	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request. A zero Limit
// means no limit.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit and ?offset. Invalid or negative values are
// treated as absent and limits above MaxLimit are clamped.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
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

// Limited reports whether the caller asked for a page.
func (p Params) Limited() bool { return p.Limit > 0 }

// LimitArg is the value to bind to "LIMIT $n": nil (SQL NULL, no limit) when
// the request is unpaged.
func (p Params) LimitArg() *int {
	if !p.Limited() {
		return nil
	}
	l := p.Limit
	return &l
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limited() && p.Offset+p.Limit < total
}

// SetTotal writes the X-Total-Count header.
func SetTotal(c echo.Context, total int) {
	c.Response().Header().Set(TotalCountHeader, strconv.Itoa(total))
}
