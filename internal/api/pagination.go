package api

import (
	"net/http"
	"strconv"
)

const totalCountHeader = "X-Total-Count"

type PaginationMeta struct {
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// parsePagination normalizes limit/offset query params.
// limit=50, offset=0. limit capped at 100, minimum 1.
// offset min 0
func parsePagination(limit, offset *int) (int, int) {
	l := 50
	o := 0
	if limit != nil {
		l = *limit
	}
	if offset != nil {
		o = *offset
	}
	if l > 100 {
		l = 100
	}
	if l < 1 {
		l = 1
	}
	if o < 0 {
		o = 0
	}
	return l, o
}

func buildPaginationMeta(total, limit, offset int) PaginationMeta {
	return PaginationMeta{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

func queryInt(r *http.Request, name string) *int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// paginate slices items by the request's limit/offset and reports the total
// in a response header.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T) []T {
	limit, offset := parsePagination(queryInt(r, "limit"), queryInt(r, "offset"))
	meta := buildPaginationMeta(len(items), limit, offset)
	w.Header().Set(totalCountHeader, strconv.Itoa(meta.Total))

	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
