package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"tamerun/internal/cache"
	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/ports"
)

const (
	catalogCacheSize = 8
	catalogCacheTTL  = 5 * time.Minute
	allKinds         = "all"
)

// CategoryCatalog is a cached view over the category table. Concurrent
// misses for the same kind share one storage read.
type CategoryCatalog struct {
	reader ports.CategoryReader
	cache  *cache.LRUCache[[]core.Category]
	group  singleflight.Group
	logger *log.Logger
}

func NewCategoryCatalog(reader ports.CategoryReader, logger *log.Logger) *CategoryCatalog {
	return &CategoryCatalog{
		reader: reader,
		cache:  cache.NewLRUCache[[]core.Category](catalogCacheSize, catalogCacheTTL),
		logger: logger.WithComponent(log.ComponentCache),
	}
}

// List returns categories of kind in display order; an empty kind lists all.
func (c *CategoryCatalog) List(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	key := string(kind)
	if key == "" {
		key = allKinds
	}
	if cats, ok := c.cache.Get(key); ok {
		return clone(cats), nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		cats, err := c.reader.ListCategories(ctx, kind)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, cats)
		return cats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	c.logger.DebugContext(ctx, "Category cache miss", log.FieldKind, key, "shared", shared)
	return clone(v.([]core.Category)), nil
}

// ByID finds a category of any kind. Unknown ids yield core.ErrUnknownCategory.
func (c *CategoryCatalog) ByID(ctx context.Context, id int64) (core.Category, error) {
	cats, err := c.List(ctx, "")
	if err != nil {
		return core.Category{}, err
	}
	for _, cat := range cats {
		if cat.ID == id {
			return cat, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrUnknownCategory)
}

// Names lists the display names of kind in display order.
func (c *CategoryCatalog) Names(ctx context.Context, kind core.Kind) ([]string, error) {
	cats, err := c.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = cat.Name
	}
	return names, nil
}

func (c *CategoryCatalog) Invalidate() {
	c.cache.Clear()
}

// CleanExpired lets a cache.Manager sweep the catalog.
func (c *CategoryCatalog) CleanExpired() int {
	return c.cache.CleanExpired()
}

func clone(cats []core.Category) []core.Category {
	return append([]core.Category(nil), cats...)
}
