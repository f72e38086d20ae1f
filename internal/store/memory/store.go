// Package memory implements the domain store, cache, lock and pub/sub
// interfaces in process memory. It backs the "memory" storage driver and the
// service tests. Values are copied on the way in and out so callers never
// share slices or maps with the store.
package memory

import (
	"sort"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// page applies offset and limit to an already ordered slice.
func page[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
