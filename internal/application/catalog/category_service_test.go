package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/cache"
	"github.com/homeservices/backend/internal/infrastructure/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected a DomainError, got %v", err)
	return de.Code
}

func TestCategoryService_GetCategories(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	t.Run("defaults sort by name on the first page", func(t *testing.T) {
		result, err := svc.GetCategories(ctx, CategoryListQuery{})
		require.NoError(t, err)

		assert.Equal(t, []string{"Carpet Care", "Cleaning", "Leak Repair", "Painting", "Plumbing"}, responseNames(result.Items))
		assert.Equal(t, int64(5), result.Total)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 10, result.PageSize)
		assert.Equal(t, 1, result.TotalPages)
	})

	t.Run("normalizes out of range pagination", func(t *testing.T) {
		result, err := svc.GetCategories(ctx, CategoryListQuery{Page: -3, PageSize: 5000})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 100, result.PageSize)
	})

	t.Run("filters and pages", func(t *testing.T) {
		result, err := svc.GetCategories(ctx, CategoryListQuery{Parent: "top-level", SortBy: "createdAt", SortOrder: "desc", PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"Painting", "Plumbing"}, responseNames(result.Items))
		assert.Equal(t, int64(3), result.Total)
		assert.Equal(t, 2, result.TotalPages)
	})

	t.Run("status filter", func(t *testing.T) {
		result, err := svc.GetCategories(ctx, CategoryListQuery{Status: "inactive"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Plumbing"}, responseNames(result.Items))
	})

	t.Run("children of one parent", func(t *testing.T) {
		result, err := svc.GetCategories(ctx, CategoryListQuery{ParentID: &f.cleaning.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"Carpet Care"}, responseNames(result.Items))
	})

	t.Run("rejects unknown options field by field", func(t *testing.T) {
		_, err := svc.GetCategories(ctx, CategoryListQuery{SortBy: "price", Status: "archived"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		fields := make([]string, 0, len(de.Details))
		for _, d := range de.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"status", "sort_by"}, fields)
	})
}

func TestCategoryService_GetCategories_RepositoryFailure(t *testing.T) {
	categories := new(MockCategoryRepository)
	products := new(MockProductRepository)
	svc := NewCategoryService(categories, products)

	cause := shared.NewNetworkError("find categories", context.DeadlineExceeded)
	categories.On("FindAll", mock.Anything, mock.AnythingOfType("shared.Filter")).Return([]catalog.Category(nil), cause)

	_, err := svc.GetCategories(context.Background(), CategoryListQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNetwork))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	categories.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

func TestCategoryService_GetCategories_BuildsRepositoryFilter(t *testing.T) {
	categories := new(MockCategoryRepository)
	products := new(MockProductRepository)
	svc := NewCategoryService(categories, products, WithListLimits(ListLimits{DefaultPageSize: 25, MaxPageSize: 50}))

	expected := shared.Filter{
		Page:     3,
		PageSize: 25,
		OrderBy:  "productCount",
		OrderDir: "desc",
		Search:   "clean",
		Filters: map[string]any{
			catalog.FilterKeyStatus: "active",
			catalog.FilterKeyParent: "all",
		},
	}
	categories.On("FindAll", mock.Anything, expected).Return([]catalog.Category{}, nil)
	categories.On("Count", mock.Anything, expected).Return(int64(51), nil)

	result, err := svc.GetCategories(context.Background(), CategoryListQuery{
		Search:    "clean",
		Status:    "active",
		SortBy:    "productCount",
		SortOrder: "desc",
		Page:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalPages)
	assert.Empty(t, result.Items)
	categories.AssertExpectations(t)
}

func TestCategoryService_QueryWithStats(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	state := catalog.DefaultListState()
	state.SortBy = catalog.SortByProductCount
	state.SortOrder = catalog.SortDesc
	state.PageSize = 2

	result, err := svc.QueryWithStats(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Cleaning", result.Items[0].Name)
	assert.Equal(t, 2, result.Items[0].ProductCount)
	assert.Equal(t, 1, result.Items[0].SubcategoryCount)
	assert.Equal(t, "Carpet Care", result.Items[1].Name)
	assert.Equal(t, 1, result.Items[1].ProductCount)
	assert.Equal(t, 5, result.TotalMatched)
	assert.Equal(t, 3, result.TotalPages)
}

func TestCategoryService_GetCategoriesWithStats(t *testing.T) {
	f := newFixture(t)
	items, err := f.service().GetCategoriesWithStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Cleaning", "Carpet Care", "Leak Repair", "Plumbing", "Painting"}, statsNames(items))
	assert.Equal(t, 1, items[3].SubcategoryCount)
	assert.Equal(t, 0, items[3].ProductCount)
}

func TestCategoryService_DashboardStats(t *testing.T) {
	ctx := context.Background()

	t.Run("computes totals", func(t *testing.T) {
		f := newFixture(t)
		stats, err := f.service().DashboardStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, catalog.DashboardStats{
			Total:         5,
			Active:        4,
			Inactive:      1,
			TopLevel:      3,
			WithProducts:  2,
			TotalProducts: 3,
		}, stats)
	})

	t.Run("serves from cache until a category event invalidates it", func(t *testing.T) {
		f := newFixture(t)
		statsCache := cache.NewInMemoryStatsCache()
		bus := event.NewInMemoryEventBus(zap.NewNop())
		require.NoError(t, bus.Start(ctx))
		t.Cleanup(func() { _ = bus.Stop(ctx) })
		bus.Subscribe(NewStatsCacheInvalidator(statsCache, nil))

		svc := f.service(WithStatsCache(statsCache, time.Minute), WithEventPublisher(bus))

		stats, err := svc.DashboardStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.Total)

		// Written behind the service's back, so nothing invalidates the cache
		storeCategory(t, f.store, "Roofing", nil, 3, fixtureBase.Add(5*time.Hour))
		stats, err = svc.DashboardStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.Total)

		_, err = svc.Create(ctx, CreateCategoryRequest{Name: "Gardening"})
		require.NoError(t, err)
		stats, err = svc.DashboardStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, stats.Total)
		assert.Equal(t, 5, stats.TopLevel)
	})

	t.Run("cache read failure falls back to the repository", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(WithStatsCache(failingStatsCache{}, time.Minute))
		stats, err := svc.DashboardStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.Total)
	})
}

type failingStatsCache struct{}

func (failingStatsCache) Get(context.Context) (*catalog.DashboardStats, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingStatsCache) Set(context.Context, catalog.DashboardStats, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStatsCache) Invalidate(context.Context) error { return nil }

func (failingStatsCache) Close() error { return nil }

func TestCategoryService_GetSubcategories(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	children, err := svc.GetSubcategories(context.Background(), f.plumbing.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leak Repair"}, responseNames(children))

	_, err = svc.GetSubcategories(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestCategoryService_GetTree(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	tree, err := svc.GetTree(context.Background())
	require.NoError(t, err)

	require.Len(t, tree, 3)
	assert.Equal(t, "Cleaning", tree[0].Name)
	assert.True(t, tree[0].HasChildren)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Carpet Care", tree[0].Children[0].Name)
	assert.Equal(t, 1, tree[0].Children[0].Level)
	assert.Equal(t, "Painting", tree[2].Name)
	assert.False(t, tree[2].HasChildren)
	assert.NotNil(t, tree[2].Children)
}

func TestCategoryService_GetFlatTree(t *testing.T) {
	f := newFixture(t)
	items, err := f.service().GetFlatTree(context.Background())
	require.NoError(t, err)

	names := make([]string, len(items))
	levels := make([]int, len(items))
	for i := range items {
		names[i] = items[i].Name
		levels[i] = items[i].Level
	}
	assert.Equal(t, []string{"Cleaning", "Carpet Care", "Plumbing", "Leak Repair", "Painting"}, names)
	assert.Equal(t, []int{0, 1, 0, 1, 0}, levels)
}

func TestCategoryService_GetTree_PromotesOrphans(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()
	storeCategory(t, f.store, "Window Washing", &missing, 5, fixtureBase.Add(6*time.Hour))

	core, logs := observer.New(zapcore.WarnLevel)
	svc := f.service(WithLogger(zap.New(core)))

	tree, err := svc.GetTree(context.Background())
	require.NoError(t, err)

	require.Len(t, tree, 4)
	assert.Equal(t, "Window Washing", tree[3].Name)
	assert.Equal(t, 0, tree[3].Level)

	promoted := logs.FilterMessage("Category promoted to root").All()
	require.Len(t, promoted, 1)
	assert.Equal(t, missing.String(), promoted[0].ContextMap()["parent_id"])
}

func TestCategoryService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a top-level category", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service()

		resp, err := svc.Create(ctx, CreateCategoryRequest{Name: "  Roofing ", Description: "Roof repair", SortOrder: ptr(4)})
		require.NoError(t, err)
		assert.Equal(t, "Roofing", resp.Name)
		assert.Equal(t, "active", resp.Status)
		assert.Equal(t, 4, resp.SortOrder)
		assert.Nil(t, resp.ParentID)

		stored, err := f.store.Categories().FindByID(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, "Roof repair", stored.Description)
	})

	t.Run("creates an inactive subcategory", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service().Create(ctx, CreateCategoryRequest{Name: "Drain Unblocking", ParentID: &f.plumbing.ID, Status: "inactive"})
		require.NoError(t, err)
		assert.Equal(t, "inactive", resp.Status)
		assert.Equal(t, f.plumbing.ID, *resp.ParentID)
	})

	t.Run("rejects an unknown parent", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service().Create(ctx, CreateCategoryRequest{Name: "Drain Unblocking", ParentID: ptr(uuid.New())})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, CodeInvalidParent, domainCode(t, err))

		count, err := f.store.Categories().Count(ctx, shared.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service().Create(ctx, CreateCategoryRequest{Name: "X"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("publishes the created event", func(t *testing.T) {
		f := newFixture(t)
		publisher := &recordingPublisher{}
		resp, err := f.service(WithEventPublisher(publisher)).Create(ctx, CreateCategoryRequest{Name: "Roofing"})
		require.NoError(t, err)

		require.Len(t, publisher.events, 1)
		assert.Equal(t, catalog.EventTypeCategoryCreated, publisher.events[0].EventType())
		assert.Equal(t, resp.ID, publisher.events[0].AggregateID())
	})

	t.Run("a failing publisher does not fail the mutation", func(t *testing.T) {
		f := newFixture(t)
		publisher := &recordingPublisher{err: errors.New("bus stopped")}
		_, err := f.service(WithEventPublisher(publisher)).Create(ctx, CreateCategoryRequest{Name: "Roofing"})
		require.NoError(t, err)
	})
}

type recordingPublisher struct {
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func TestCategoryService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the given fields only", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service().Update(ctx, f.painting.ID, UpdateCategoryRequest{Name: ptr("Interior Painting")})
		require.NoError(t, err)
		assert.Equal(t, "Interior Painting", resp.Name)
		assert.Equal(t, "Painting services", resp.Description)
		assert.Equal(t, 2, resp.SortOrder)
		assert.Equal(t, f.painting.Version+1, resp.Version)
	})

	t.Run("changes status", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service().Update(ctx, f.plumbing.ID, UpdateCategoryRequest{Status: ptr("active")})
		require.NoError(t, err)
		assert.Equal(t, "active", resp.Status)
	})

	t.Run("unchanged values are not saved", func(t *testing.T) {
		f := newFixture(t)
		publisher := &recordingPublisher{}
		resp, err := f.service(WithEventPublisher(publisher)).Update(ctx, f.painting.ID, UpdateCategoryRequest{
			Name:   ptr("Painting"),
			Status: ptr("active"),
		})
		require.NoError(t, err)
		assert.Equal(t, f.painting.Version, resp.Version)
		assert.Empty(t, publisher.events)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service().Update(ctx, uuid.New(), UpdateCategoryRequest{Name: ptr("Roofing")})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("stale write is a conflict", func(t *testing.T) {
		categories := new(MockCategoryRepository)
		svc := NewCategoryService(categories, new(MockProductRepository))

		current := newTestCategory(t, "Painting", nil, 2, fixtureBase)
		categories.On("FindByID", mock.Anything, current.ID).Return(current, nil)
		categories.On("Save", mock.Anything, current).Return(shared.ErrConcurrencyConflict)

		_, err := svc.Update(ctx, current.ID, UpdateCategoryRequest{Name: ptr("Decorating")})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrConflict))
		categories.AssertExpectations(t)
	})
}

// interleavingRepository lets another writer commit between a load and the save that follows it
type interleavingRepository struct {
	catalog.CategoryRepository
	afterLoad func()
}

func (r *interleavingRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	category, err := r.CategoryRepository.FindByID(ctx, id)
	if hook := r.afterLoad; hook != nil {
		r.afterLoad = nil
		hook()
	}
	return category, err
}

func TestCategoryService_Update_LostUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	repo := &interleavingRepository{CategoryRepository: f.store.Categories()}
	repo.afterLoad = func() {
		resp, err := f.service().Deactivate(ctx, f.painting.ID)
		require.NoError(t, err)
		require.Equal(t, f.painting.Version+1, resp.Version)
	}
	svc := NewCategoryService(repo, f.store.Products())

	// two changes from the stale copy push its version past the stored one
	_, err := svc.Update(ctx, f.painting.ID, UpdateCategoryRequest{
		Name:   ptr("Painting B"),
		Status: ptr("inactive"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

	stored, err := f.store.Categories().FindByID(ctx, f.painting.ID)
	require.NoError(t, err)
	assert.Equal(t, "Painting", stored.Name)
	assert.Equal(t, catalog.CategoryStatusInactive, stored.Status)
	assert.Equal(t, f.painting.Version+1, stored.Version)
}

func TestCategoryService_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("moves under a new parent", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service().Move(ctx, f.painting.ID, MoveCategoryRequest{ParentID: &f.cleaning.ID})
		require.NoError(t, err)
		assert.Equal(t, f.cleaning.ID, *resp.ParentID)

		children, err := f.store.Categories().CountChildren(ctx, f.cleaning.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), children)
	})

	t.Run("moves to the top level", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service().Move(ctx, f.carpet.ID, MoveCategoryRequest{})
		require.NoError(t, err)
		assert.Nil(t, resp.ParentID)
	})

	t.Run("rejects itself as parent", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service().Move(ctx, f.cleaning.ID, MoveCategoryRequest{ParentID: &f.cleaning.ID})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.False(t, errors.Is(err, shared.ErrConflict))
		assert.Equal(t, CodeInvalidParent, domainCode(t, err))

		stored, err := f.store.Categories().FindByID(ctx, f.cleaning.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ParentID)
		assert.Equal(t, f.cleaning.Version, stored.Version)
	})

	t.Run("rejects a descendant as parent", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service().Move(ctx, f.cleaning.ID, MoveCategoryRequest{ParentID: &f.carpet.ID})
		require.Error(t, err)
		assert.Equal(t, CodeCircularReference, domainCode(t, err))

		stored, err := f.store.Categories().FindByID(ctx, f.cleaning.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ParentID)
	})

	t.Run("rejects an unknown parent", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service().Move(ctx, f.painting.ID, MoveCategoryRequest{ParentID: ptr(uuid.New())})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, CodeInvalidParent, domainCode(t, err))
	})

	t.Run("same parent is a no-op", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service().Move(ctx, f.carpet.ID, MoveCategoryRequest{ParentID: &f.cleaning.ID})
		require.NoError(t, err)
		assert.Equal(t, f.carpet.Version, resp.Version)
	})
}

func TestCategoryService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	resp, err := svc.Deactivate(ctx, f.painting.ID)
	require.NoError(t, err)
	assert.Equal(t, "inactive", resp.Status)

	_, err = svc.Deactivate(ctx, f.painting.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	resp, err = svc.Activate(ctx, f.painting.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Status)

	_, err = svc.Activate(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestCategoryService_CanDelete(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	tests := []struct {
		name   string
		id     uuid.UUID
		expect DeleteCheck
	}{
		{"products are checked before children", f.cleaning.ID, DeleteCheck{Code: CodeHasProducts, Reason: ReasonHasProducts}},
		{"products only", f.carpet.ID, DeleteCheck{Code: CodeHasProducts, Reason: ReasonHasProducts}},
		{"children only", f.plumbing.ID, DeleteCheck{Code: CodeHasChildren, Reason: ReasonHasChildren}},
		{"leaf without products", f.leak.ID, DeleteCheck{CanDelete: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := svc.CanDelete(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, *check)
		})
	}

	_, err := svc.CanDelete(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestCategoryService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes a free category", func(t *testing.T) {
		f := newFixture(t)
		publisher := &recordingPublisher{}
		require.NoError(t, f.service(WithEventPublisher(publisher)).Delete(ctx, f.painting.ID))

		_, err := f.store.Categories().FindByID(ctx, f.painting.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		require.Len(t, publisher.events, 1)
		assert.Equal(t, catalog.EventTypeCategoryDeleted, publisher.events[0].EventType())
	})

	t.Run("blocked category reports the reason", func(t *testing.T) {
		f := newFixture(t)
		err := f.service().Delete(ctx, f.plumbing.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrConflict))
		assert.Equal(t, CodeHasChildren, domainCode(t, err))
		assert.Equal(t, ReasonHasChildren, err.Error())
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newFixture(t)
		err := f.service().Delete(ctx, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestCategoryService_BulkDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every category", func(t *testing.T) {
		f := newFixture(t)
		publisher := &recordingPublisher{}
		err := f.service(WithEventPublisher(publisher)).BulkDelete(ctx, []uuid.UUID{f.leak.ID, f.painting.ID, f.leak.ID})
		require.NoError(t, err)

		count, err := f.store.Categories().Count(ctx, shared.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.Len(t, publisher.events, 2)
	})

	t.Run("one blocked category aborts the batch", func(t *testing.T) {
		f := newFixture(t)
		err := f.service().BulkDelete(ctx, []uuid.UUID{f.painting.ID, f.cleaning.ID})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrConflict))
		assert.Equal(t, "Cleaning: "+ReasonHasProducts, err.Error())

		_, err = f.store.Categories().FindByID(ctx, f.painting.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown id aborts the batch", func(t *testing.T) {
		f := newFixture(t)
		err := f.service().BulkDelete(ctx, []uuid.UUID{f.painting.ID, uuid.New()})
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		_, err = f.store.Categories().FindByID(ctx, f.painting.ID)
		assert.NoError(t, err)
	})

	t.Run("empty selection", func(t *testing.T) {
		f := newFixture(t)
		err := f.service().BulkDelete(ctx, nil)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("store failure leaves everything in place", func(t *testing.T) {
		categories := new(MockCategoryRepository)
		products := new(MockProductRepository)
		svc := NewCategoryService(categories, products)

		a := newTestCategory(t, "Roofing", nil, 0, fixtureBase)
		b := newTestCategory(t, "Gutters", nil, 1, fixtureBase)
		for _, c := range []*catalog.Category{a, b} {
			categories.On("FindByID", mock.Anything, c.ID).Return(c, nil)
			categories.On("CountChildren", mock.Anything, c.ID).Return(int64(0), nil)
			products.On("CountByCategory", mock.Anything, c.ID).Return(int64(0), nil)
		}
		cause := shared.NewNetworkError("delete categories", errors.New("connection reset"))
		categories.On("DeleteBatch", mock.Anything, []uuid.UUID{a.ID, b.ID}).Return(cause)

		err := svc.BulkDelete(ctx, []uuid.UUID{a.ID, b.ID})
		assert.True(t, errors.Is(err, shared.ErrNetwork))
		categories.AssertExpectations(t)
		products.AssertExpectations(t)
	})
}

func TestStatsCacheInvalidator(t *testing.T) {
	ctx := context.Background()
	statsCache := cache.NewInMemoryStatsCache()
	require.NoError(t, statsCache.Set(ctx, catalog.DashboardStats{Total: 3}, time.Minute))

	handler := NewStatsCacheInvalidator(statsCache, zap.NewNop())
	assert.Equal(t, catalog.CategoryEventTypes, handler.EventTypes())

	category := newTestCategory(t, "Roofing", nil, 0, fixtureBase)
	require.NoError(t, handler.Handle(ctx, catalog.NewCategoryCreatedEvent(category)))

	_, ok, err := statsCache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
