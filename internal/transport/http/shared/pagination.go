package shared

import (
	"net/http"
	"strconv"
)

// Window is the limit/offset pair read from a list request.
type Window struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Page is a list response: one window of items plus the unwindowed total.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Window
}

// ReadWindow parses ?limit= and ?offset=. Bad or missing values fall back to
// fallback and 0, and limit is capped at ceiling.
func ReadWindow(r *http.Request, fallback, ceiling int) Window {
	q := r.URL.Query()
	w := Window{Limit: queryInt(q.Get("limit"), fallback, 1), Offset: queryInt(q.Get("offset"), 0, 0)}
	if ceiling > 0 {
		w.Limit = min(w.Limit, ceiling)
	}
	return w
}

func queryInt(raw string, fallback, floor int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < floor {
		return fallback
	}
	return n
}

// Wrap builds a page from items already fetched for this window.
func Wrap[T any](w Window, items []T, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Window: w}
}

// Slice cuts the window out of a fully loaded list.
func Slice[T any](w Window, all []T) Page[T] {
	start := min(w.Offset, len(all))
	end := min(start+w.Limit, len(all))
	return Wrap(w, all[start:end], len(all))
}
