// Package schema aggregates go-crud controller metadata into one OpenAPI
// document for admin tooling.
package schema

import (
	"net/http"
	"sort"
	"sync"

	"github.com/goliatone/go-router"
)

// Catalog holds the metadata of the registered review resources.
type Catalog struct {
	mu        sync.RWMutex
	resources map[string]router.ResourceMetadata
	info      router.OpenAPIInfo
	tags      []string
	onChange  []func(names []string)
}

// Option customizes the catalog.
type Option func(*Catalog)

// WithInfo overrides the OpenAPI info block.
func WithInfo(info router.OpenAPIInfo) Option {
	return func(c *Catalog) {
		if info.Title != "" {
			c.info.Title = info.Title
		}
		if info.Version != "" {
			c.info.Version = info.Version
		}
		if info.Description != "" {
			c.info.Description = info.Description
		}
	}
}

// WithTags sets tags applied to every generated document.
func WithTags(tags ...string) Option {
	return func(c *Catalog) {
		c.tags = append([]string(nil), tags...)
	}
}

// NewCatalog constructs an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		resources: make(map[string]router.ResourceMetadata),
		info: router.OpenAPIInfo{
			Title:   "Review Schemas",
			Version: "1.0.0",
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// OnChange registers a callback receiving the sorted resource names after
// every registration.
func (c *Catalog) OnChange(fn func(names []string)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Register snapshots the providers' metadata. A resource registered twice
// keeps the latest metadata. Providers without a name are skipped.
func (c *Catalog) Register(providers ...router.MetadataProvider) {
	c.mu.Lock()
	changed := false
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		metadata := provider.GetMetadata()
		if metadata.Name == "" {
			continue
		}
		c.resources[metadata.Name] = metadata
		changed = true
	}
	names := c.namesLocked()
	callbacks := append([]func([]string){}, c.onChange...)
	c.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range callbacks {
		fn(names)
	}
}

// Resources returns the registered resource names, sorted.
func (c *Catalog) Resources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namesLocked()
}

// Document compiles the registered metadata. Nil means nothing is registered.
func (c *Catalog) Document() map[string]any {
	c.mu.RLock()
	names := c.namesLocked()
	providers := make([]router.MetadataProvider, 0, len(names))
	for _, name := range names {
		providers = append(providers, staticProvider(c.resources[name]))
	}
	info := c.info
	tags := append([]string(nil), c.tags...)
	c.mu.RUnlock()

	if len(providers) == 0 {
		return nil
	}
	aggregator := router.NewMetadataAggregator()
	aggregator.SetInfo(info)
	if len(tags) > 0 {
		aggregator.SetTags(tags)
	}
	aggregator.AddProviders(providers...)
	aggregator.Compile()
	return aggregator.GenerateOpenAPI()
}

// Handler serves the compiled document, or 204 when the catalog is empty.
func (c *Catalog) Handler() router.HandlerFunc {
	return func(ctx router.Context) error {
		doc := c.Document()
		if len(doc) == 0 {
			return ctx.NoContent(http.StatusNoContent)
		}
		return ctx.JSON(http.StatusOK, doc)
	}
}

func (c *Catalog) namesLocked() []string {
	names := make([]string, 0, len(c.resources))
	for name := range c.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type staticProvider router.ResourceMetadata

func (s staticProvider) GetMetadata() router.ResourceMetadata {
	return router.ResourceMetadata(s)
}
