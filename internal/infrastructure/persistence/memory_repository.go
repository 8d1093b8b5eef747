package persistence

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
)

// MemoryStore backs the mock data source: categories and products held in process,
// with an optional simulated round-trip latency on every call.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[uuid.UUID]catalog.Category
	products   map[uuid.UUID]catalog.Product
	latency    time.Duration
}

// NewMemoryStore creates an empty store that waits latency before answering each call
func NewMemoryStore(latency time.Duration) *MemoryStore {
	return &MemoryStore{
		categories: make(map[uuid.UUID]catalog.Category),
		products:   make(map[uuid.UUID]catalog.Product),
		latency:    latency,
	}
}

// Categories returns the category repository view of the store
func (s *MemoryStore) Categories() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{store: s}
}

// Products returns the product repository view of the store
func (s *MemoryStore) Products() *MemoryProductRepository {
	return &MemoryProductRepository{store: s}
}

// wait simulates the network round trip; a cancelled context surfaces as a NetworkError
func (s *MemoryStore) wait(ctx context.Context, op string) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return shared.NewNetworkError(op, ctx.Err())
	}
}

// snapshotLocked returns copies of all categories in snapshot order
func (s *MemoryStore) snapshotLocked() []catalog.Category {
	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b catalog.Category) int {
		return cmp.Or(
			cmp.Compare(a.SortOrder, b.SortOrder),
			a.CreatedAt.Compare(b.CreatedAt),
			slices.Compare(a.ID[:], b.ID[:]),
		)
	})
	return out
}

func (s *MemoryStore) productCountsLocked() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int)
	for _, p := range s.products {
		if p.CategoryID != nil {
			counts[*p.CategoryID]++
		}
	}
	return counts
}

// MemoryCategoryRepository implements CategoryRepository over a MemoryStore
type MemoryCategoryRepository struct {
	store *MemoryStore
}

// FindByID finds a category by its ID
func (r *MemoryCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	if err := r.store.wait(ctx, "find category"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.categories[id]
	if !ok {
		return nil, notFound(id)
	}
	return &c, nil
}

// FindAll runs the list engine over the stored categories
func (r *MemoryCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Category, error) {
	if err := r.store.wait(ctx, "list categories"); err != nil {
		return nil, err
	}
	matched := r.filtered(filter)
	page := matched
	if filter.Page > 0 && filter.PageSize > 0 {
		page = catalog.Paginate(matched, filter.Page, filter.PageSize)
	}

	out := make([]catalog.Category, len(page))
	for i := range page {
		out[i] = page[i].Category
	}
	return out, nil
}

// Count counts categories matching the filter
func (r *MemoryCategoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	if err := r.store.wait(ctx, "count categories"); err != nil {
		return 0, err
	}
	return int64(len(r.filtered(filter))), nil
}

// filtered translates a repository filter into list state and returns the matched, sorted items
func (r *MemoryCategoryRepository) filtered(filter shared.Filter) []catalog.CategoryWithStats {
	r.store.mu.RLock()
	items := catalog.WithStats(r.store.snapshotLocked(), r.store.productCountsLocked())
	r.store.mu.RUnlock()

	state := catalog.DefaultListState()
	state.SearchTerm = filter.Search
	for key, value := range filter.Filters {
		switch key {
		case catalog.FilterKeyStatus:
			if s, err := catalog.ParseStatusFilter(fmt.Sprint(value)); err == nil {
				state.Status = s
			}
		case catalog.FilterKeyParent:
			if p, err := catalog.ParseParentFilter(fmt.Sprint(value)); err == nil {
				state.Parent = p
			}
		case catalog.FilterKeyParentID:
			items = keepChildrenOf(items, value)
		}
	}

	matched := catalog.FilterCategories(items, state)
	if field, err := catalog.ParseSortField(filter.OrderBy); err == nil && filter.OrderBy != "" {
		dir, _ := catalog.ParseSortDirection(filter.OrderDir)
		matched = catalog.SortCategories(matched, field, dir)
	}
	return matched
}

func keepChildrenOf(items []catalog.CategoryWithStats, value any) []catalog.CategoryWithStats {
	var parent *uuid.UUID
	switch v := value.(type) {
	case uuid.UUID:
		parent = &v
	case *uuid.UUID:
		parent = v
	}
	return slices.DeleteFunc(items, func(c catalog.CategoryWithStats) bool {
		if parent == nil {
			return c.ParentID != nil
		}
		return c.ParentID == nil || *c.ParentID != *parent
	})
}

// FindSnapshot loads every category in snapshot order
func (r *MemoryCategoryRepository) FindSnapshot(ctx context.Context) ([]catalog.Category, error) {
	if err := r.store.wait(ctx, "load categories"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.snapshotLocked(), nil
}

// FindChildren finds all direct children of a category
func (r *MemoryCategoryRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]catalog.Category, error) {
	if err := r.store.wait(ctx, "list subcategories"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return catalog.DirectChildren(r.store.snapshotLocked(), parentID), nil
}

// Save creates or updates a category; a stored version other than the one the
// aggregate was loaded at is a concurrency conflict
func (r *MemoryCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	if err := r.store.wait(ctx, "save category"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.categories[category.ID]
	switch {
	case ok && existing.Version != category.LoadedVersion():
		return shared.ErrConcurrencyConflict
	case !ok && category.LoadedVersion() != 0:
		return notFound(category.ID)
	}
	category.MarkPersisted()
	stored := *category
	stored.ClearDomainEvents()
	r.store.categories[category.ID] = stored
	return nil
}

// Delete deletes a category
func (r *MemoryCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteBatch(ctx, []uuid.UUID{id})
}

// DeleteBatch removes every id or, if any is missing, none of them
func (r *MemoryCategoryRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if err := r.store.wait(ctx, "delete categories"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, id := range ids {
		if _, ok := r.store.categories[id]; !ok {
			return notFound(id)
		}
	}
	for _, id := range ids {
		delete(r.store.categories, id)
	}
	return nil
}

// CountChildren counts the direct children of a category
func (r *MemoryCategoryRepository) CountChildren(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	if err := r.store.wait(ctx, "count subcategories"); err != nil {
		return 0, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int64
	for _, c := range r.store.categories {
		if c.ParentID != nil && *c.ParentID == categoryID {
			n++
		}
	}
	return n, nil
}

// MemoryProductRepository implements ProductRepository over a MemoryStore
type MemoryProductRepository struct {
	store *MemoryStore
}

// Save creates or updates a product
func (r *MemoryProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	if err := r.store.wait(ctx, "save product"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := *product
	stored.ClearDomainEvents()
	r.store.products[product.ID] = stored
	return nil
}

// CountByCategory counts products filed directly under a category
func (r *MemoryProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	if err := r.store.wait(ctx, "count products"); err != nil {
		return 0, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(r.store.productCountsLocked()[categoryID]), nil
}

// CountGroupedByCategory returns product counts keyed by category id
func (r *MemoryProductRepository) CountGroupedByCategory(ctx context.Context) (map[uuid.UUID]int, error) {
	if err := r.store.wait(ctx, "count products by category"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.productCountsLocked(), nil
}

var (
	_ catalog.CategoryRepository = (*MemoryCategoryRepository)(nil)
	_ catalog.ProductRepository  = (*MemoryProductRepository)(nil)
)
