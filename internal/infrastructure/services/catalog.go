package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

// Catalog is an immutable snapshot of loaded definitions and data buckets.
// Definitions keep storage order within each method.
type Catalog struct {
	all      []*definition.Definition
	byMethod map[string][]*definition.Definition
	byID     map[string]*definition.Definition
	buckets  definition.Buckets
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byMethod: make(map[string][]*definition.Definition),
		byID:     make(map[string]*definition.Definition),
		buckets:  make(definition.Buckets),
	}
}

// Add appends a compiled definition. IDs must be unique.
func (c *Catalog) Add(d *definition.Definition) error {
	if prev, ok := c.byID[d.ID]; ok {
		return fmt.Errorf("duplicate definition id %q (%s and %s)", d.ID, prev.SourceFile, d.SourceFile)
	}
	c.all = append(c.all, d)
	c.byMethod[d.Method] = append(c.byMethod[d.Method], d)
	c.byID[d.ID] = d
	return nil
}

// SetBuckets replaces the data buckets. Buckets of the root collection are
// visible from every collection unless a collection bucket shadows them.
func (c *Catalog) SetBuckets(b definition.Buckets) {
	if b == nil {
		b = make(definition.Buckets)
	}
	if shared := b[""]; len(shared) > 0 {
		for id, own := range b {
			if id == "" {
				continue
			}
			for name, data := range shared {
				if _, ok := own[name]; !ok {
					own[name] = data
				}
			}
		}
	}
	c.buckets = b
}

// ListActive returns active definitions for method whose query filter is
// empty or equal to rawQuery, in storage order.
func (c *Catalog) ListActive(method, rawQuery string) []*definition.Definition {
	candidates := c.byMethod[strings.ToUpper(method)]
	out := make([]*definition.Definition, 0, len(candidates))
	for _, d := range candidates {
		if !d.Active {
			continue
		}
		if d.Query != "" && d.Query != rawQuery {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (*definition.Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// All returns every definition in storage order.
func (c *Catalog) All() []*definition.Definition {
	return slices.Clone(c.all)
}

// Search returns definitions whose id, description, route or method
// contains q, ignoring case. An empty q returns everything.
func (c *Catalog) Search(q string) []*definition.Definition {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return c.All()
	}
	var out []*definition.Definition
	for _, d := range c.all {
		for _, field := range []string{d.ID, d.Description, d.Route, d.Method, d.CollectionID} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Buckets returns the data buckets of a collection.
func (c *Catalog) Buckets(collectionID string) map[string]any {
	if own, ok := c.buckets[collectionID]; ok {
		return own
	}
	return c.buckets[""]
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.all)
}

// ErrCatalogNotLoaded is returned by LiveCatalog before the first swap.
var ErrCatalogNotLoaded = errors.New("catalog not loaded")

var _ ports.DefinitionStore = (*LiveCatalog)(nil)

// LiveCatalog serves the current catalog snapshot; reloads swap it atomically.
type LiveCatalog struct {
	current atomic.Pointer[Catalog]
}

// NewLiveCatalog creates a store with no catalog loaded.
func NewLiveCatalog() *LiveCatalog {
	return &LiveCatalog{}
}

// Swap installs c as the current snapshot.
func (l *LiveCatalog) Swap(c *Catalog) {
	l.current.Store(c)
}

// Current returns the current snapshot, or nil before the first load.
func (l *LiveCatalog) Current() *Catalog {
	return l.current.Load()
}

func (l *LiveCatalog) ListActiveDefinitions(_ context.Context, method, rawQuery string) ([]*definition.Definition, error) {
	c := l.current.Load()
	if c == nil {
		return nil, ErrCatalogNotLoaded
	}
	return c.ListActive(method, rawQuery), nil
}

func (l *LiveCatalog) LoadDataBuckets(_ context.Context, collectionID string) (map[string]any, error) {
	c := l.current.Load()
	if c == nil {
		return nil, ErrCatalogNotLoaded
	}
	return c.Buckets(collectionID), nil
}
