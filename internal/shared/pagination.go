package shared

import (
	"net/http"
	"strconv"
)

// Pagination carries limit/offset parsed from a request.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultLimit = 20
	maxLimit     = 200
)

// PaginationFromRequest parses limit/offset query parameters with defaults.
func PaginationFromRequest(r *http.Request) Pagination {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}
