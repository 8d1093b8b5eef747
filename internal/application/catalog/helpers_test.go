package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixtureBase = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fixture is a small hierarchy stored in an in-memory store:
//
//	Cleaning (0)       products: 2
//	  Carpet Care (0)  products: 1
//	Plumbing (1)       inactive
//	  Leak Repair (0)
//	Painting (2)
type fixture struct {
	store                                      *persistence.MemoryStore
	cleaning, carpet, plumbing, leak, painting *catalog.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := persistence.NewMemoryStore(0)

	f := &fixture{store: store}
	f.cleaning = storeCategory(t, store, "Cleaning", nil, 0, fixtureBase)
	f.carpet = storeCategory(t, store, "Carpet Care", &f.cleaning.ID, 0, fixtureBase.Add(time.Hour))
	f.plumbing = newTestCategory(t, "Plumbing", nil, 1, fixtureBase.Add(2*time.Hour))
	f.plumbing.Status = catalog.CategoryStatusInactive
	require.NoError(t, store.Categories().Save(ctx, f.plumbing))
	f.leak = storeCategory(t, store, "Leak Repair", &f.plumbing.ID, 0, fixtureBase.Add(3*time.Hour))
	f.painting = storeCategory(t, store, "Painting", nil, 2, fixtureBase.Add(4*time.Hour))

	for _, p := range []struct {
		name     string
		category *uuid.UUID
	}{
		{"Standard Clean", &f.cleaning.ID},
		{"Office Clean", &f.cleaning.ID},
		{"Rug Shampoo", &f.carpet.ID},
		{"Gift Card", nil},
	} {
		product, err := catalog.NewProduct(p.name, p.category)
		require.NoError(t, err)
		require.NoError(t, store.Products().Save(ctx, product))
	}
	return f
}

func (f *fixture) service(opts ...ServiceOption) *CategoryService {
	return NewCategoryService(f.store.Categories(), f.store.Products(), opts...)
}

func newTestCategory(t *testing.T, name string, parentID *uuid.UUID, sortOrder int, createdAt time.Time) *catalog.Category {
	t.Helper()
	c, err := catalog.NewCategory(name, name+" services", parentID, sortOrder)
	require.NoError(t, err)
	c.CreatedAt = createdAt
	c.UpdatedAt = createdAt
	c.ClearDomainEvents()
	return c
}

func storeCategory(t *testing.T, store *persistence.MemoryStore, name string, parentID *uuid.UUID, sortOrder int, createdAt time.Time) *catalog.Category {
	t.Helper()
	c := newTestCategory(t, name, parentID, sortOrder, createdAt)
	require.NoError(t, store.Categories().Save(context.Background(), c))
	return c
}

func responseNames(items []CategoryResponse) []string {
	names := make([]string, len(items))
	for i := range items {
		names[i] = items[i].Name
	}
	return names
}

func statsNames(items []CategoryWithStatsResponse) []string {
	names := make([]string, len(items))
	for i := range items {
		names[i] = items[i].Name
	}
	return names
}

func ptr[T any](v T) *T {
	return &v
}

// MockCategoryRepository is a mock implementation of CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Category, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindSnapshot(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockCategoryRepository) CountChildren(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCategoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountGroupedByCategory(ctx context.Context) (map[uuid.UUID]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}
