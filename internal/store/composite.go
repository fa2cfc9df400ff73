package store

import (
	"context"
	"sort"
	"strings"
)

// Composite routes operations to backing stores by path prefix. The longest
// matching prefix wins; paths matching no route go to the default store.
//
// The standard wiring maps /memories/ to a persistent store and everything
// else to a per-run MemStore.
type Composite struct {
	def      Store
	prefixes []string // sorted longest-first
	routes   map[string]Store
}

// NewComposite builds a router over def with the given prefix routes.
func NewComposite(def Store, routes map[string]Store) *Composite {
	prefixes := make([]string, 0, len(routes))
	for p := range routes {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	return &Composite{def: def, prefixes: prefixes, routes: routes}
}

func (c *Composite) route(path string) Store {
	for _, p := range c.prefixes {
		if strings.HasPrefix(path, p) {
			return c.routes[p]
		}
	}
	return c.def
}

// List unions the default store with every routed store whose prefix is
// reachable from the listing prefix.
func (c *Composite) List(ctx context.Context, prefix string) ([]string, error) {
	paths, err := c.def.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, p := range c.prefixes {
		if !strings.HasPrefix(p, prefix) && !strings.HasPrefix(prefix, p) {
			continue
		}
		sub := prefix
		if strings.HasPrefix(p, prefix) {
			sub = p
		}
		more, err := c.routes[p].List(ctx, sub)
		if err != nil {
			return nil, err
		}
		paths = append(paths, more...)
	}
	return sortedUnique(paths), nil
}

func (c *Composite) Get(ctx context.Context, path string) (FileRecord, bool, error) {
	return c.route(NormalizePath(path)).Get(ctx, path)
}

func (c *Composite) Put(ctx context.Context, path string, rec FileRecord) error {
	return c.route(NormalizePath(path)).Put(ctx, path, rec)
}

func (c *Composite) Delete(ctx context.Context, path string) error {
	return c.route(NormalizePath(path)).Delete(ctx, path)
}
