package query

import (
	"strings"

	"golang.org/x/text/cases"
)

// FilterLocal keeps the items where any field contains term, ignoring case.
//
// This is the fallback for endpoints the backend cannot search: it needs the full
// list in memory and does not scale with list size. Prefer server-side search
// wherever the backend offers it.
func FilterLocal[T any](items []T, term string, fields func(T) []string) []T {
	term = strings.TrimSpace(term)
	if term == "" {
		return items
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, field := range fields(item) {
			if strings.Contains(fold.String(field), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
