package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

var (
	orderingParam = "ordering"
	offsetParam   = "offset"
	limitParam    = "limit"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Page binds the offset/limit window; out-of-range values are clamped by
// core.Pagination.Normalize down the line.
type Page struct {
	core.Pagination
}

func (p *Page) Bind(ctx echo.Context) {
	if v, err := strconv.Atoi(ctx.QueryParam(offsetParam)); err == nil {
		p.Offset = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil {
		p.Limit = v
	}
}

// ListResponse is the envelope for every list endpoint.
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// intParam parses a numeric path param; an unparseable id is a 404, not a 400,
// so probing with garbage reveals nothing.
func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
