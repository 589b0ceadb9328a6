package query

import (
	"fmt"
	"sort"
)

// Graph maps a write-side resource to the cached reads it affects. Mutations
// derive their invalidations from it instead of listing keys inline.
type Graph map[string][]Key

// Keys returns the union of keys affected by names, in first-seen order.
func (g Graph) Keys(names ...string) ([]Key, error) {
	seen := make(map[string]struct{})
	var keys []Key
	for _, name := range names {
		affected, ok := g[name]
		if !ok {
			return nil, fmt.Errorf("query: unknown resource %q in dependency graph", name)
		}
		for _, k := range affected {
			id := k.String()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// MustKeys is Keys for package-level declarations; it panics on unknown names.
func (g Graph) MustKeys(names ...string) []Key {
	keys, err := g.Keys(names...)
	if err != nil {
		panic(err)
	}
	return keys
}

// Validate checks every node has at least one key and every key has a tag.
func (g Graph) Validate() error {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(g[name]) == 0 {
			return fmt.Errorf("query: resource %q affects no keys", name)
		}
		for _, k := range g[name] {
			if k.Tag() == "" {
				return fmt.Errorf("query: resource %q has a key without tag", name)
			}
		}
	}
	return nil
}
