// Package catalog caches the product list fetched from the storefront API.
//
// The cache holds the last full load as the in-memory list plus a persisted
// baseline. Filter and search replace the in-memory list only; Reset always
// restores the last full load regardless of how many filters ran in between.
// Detail lookups fall back to the persisted baseline when the in-memory list
// is empty, which happens after a restart that kept the slot store but lost
// process state.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/storage"
)

// ErrNotFound reports a product id absent from both the in-memory list and
// the persisted baseline.
var ErrNotFound = errors.New("catalog: product not found")

// ErrNoBaseline reports a Reset with no persisted full load to restore.
var ErrNoBaseline = errors.New("catalog: no persisted baseline")

// Client is the slice of the API client the cache needs.
type Client interface {
	FetchProducts(ctx context.Context) ([]api.Product, error)
	FilterProducts(ctx context.Context, f api.ProductFilter) ([]api.Product, error)
	SearchProducts(ctx context.Context, query string) ([]api.Product, error)
}

// View is a copy of the cache state for rendering.
type View struct {
	Products []api.Product
	Current  *api.Product
	Loading  bool
	Err      string
}

// Cache is the catalog state container.
type Cache struct {
	mu      sync.RWMutex
	client  Client
	store   *storage.Store
	log     *slog.Logger
	list    []api.Product
	current *api.Product
	loading bool
	errMsg  string
}

// persistedCatalog is the productsData slot shape.
type persistedCatalog struct {
	Products []api.Product `json:"products"`
}

// New builds a Cache, seeding the in-memory list from the persisted baseline
// when one exists.
func New(ctx context.Context, client Client, store *storage.Store, log *slog.Logger) *Cache {
	c := &Cache{client: client, store: store, log: log}
	var persisted persistedCatalog
	if ok, err := store.Get(ctx, storage.SlotProductsData, &persisted); err == nil && ok {
		c.list = persisted.Products
	}
	return c
}

// LoadAll replaces the product list with a fresh full load and persists it
// as the new baseline. On failure the list empties, the emptied baseline is
// persisted, and the error is recorded.
func (c *Cache) LoadAll(ctx context.Context) error {
	c.setLoading(true)
	products, err := c.client.FetchProducts(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.list = nil
		c.errMsg = err.Error()
		c.persistLocked(ctx)
		return err
	}
	c.list = products
	c.errMsg = ""
	c.persistLocked(ctx)
	return nil
}

// Detail resolves a product by id from the in-memory list, falling back to
// the persisted baseline when the list is empty. The hit becomes the current
// product.
func (c *Cache) Detail(ctx context.Context, id int64) (api.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	product, ok := c.lookupLocked(ctx, id)
	if !ok {
		c.errMsg = ErrNotFound.Error()
		return api.Product{}, ErrNotFound
	}
	c.current = &product
	c.errMsg = ""
	return product, nil
}

// Lookup resolves a product by id without touching the current selection.
// Used by the cart engine when deriving guest snapshots.
func (c *Cache) Lookup(ctx context.Context, id int64) (api.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked(ctx, id)
}

func (c *Cache) lookupLocked(ctx context.Context, id int64) (api.Product, bool) {
	list := c.list
	if len(list) == 0 {
		var persisted persistedCatalog
		if ok, err := c.store.Get(ctx, storage.SlotProductsData, &persisted); err == nil && ok {
			list = persisted.Products
		}
	}
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return api.Product{}, false
}

// Filter replaces the in-memory list with a server-filtered result. The
// persisted baseline is untouched.
func (c *Cache) Filter(ctx context.Context, f api.ProductFilter) error {
	c.setLoading(true)
	products, err := c.client.FilterProducts(ctx, f)
	return c.replace(products, err)
}

// Search replaces the in-memory list with a server search result. The
// persisted baseline is untouched.
func (c *Cache) Search(ctx context.Context, query string) error {
	c.setLoading(true)
	products, err := c.client.SearchProducts(ctx, query)
	return c.replace(products, err)
}

func (c *Cache) replace(products []api.Product, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.errMsg = err.Error()
		return err
	}
	c.list = products
	c.errMsg = ""
	return nil
}

// Reset restores the in-memory list from the persisted baseline, undoing any
// filter or search.
func (c *Cache) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var persisted persistedCatalog
	ok, err := c.store.Get(ctx, storage.SlotProductsData, &persisted)
	if err != nil || !ok {
		c.errMsg = ErrNoBaseline.Error()
		return ErrNoBaseline
	}
	c.list = persisted.Products
	c.errMsg = ""
	return nil
}

// Snapshot returns a copy of the cache state.
func (c *Cache) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	view := View{Loading: c.loading, Err: c.errMsg}
	if len(c.list) > 0 {
		view.Products = make([]api.Product, len(c.list))
		copy(view.Products, c.list)
	}
	if c.current != nil {
		current := *c.current
		view.Current = &current
	}
	return view
}

func (c *Cache) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Cache) persistLocked(ctx context.Context) {
	if err := c.store.Set(ctx, storage.SlotProductsData, persistedCatalog{Products: c.list}); err != nil {
		c.log.Warn("persist catalog baseline", "error", err)
	}
}
