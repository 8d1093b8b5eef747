package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

var seedBase = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newSQLiteDatabase opens a private in-memory SQLite database with the catalog schema
func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		SQLitePath:  ":memory:",
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newCategory builds a persisted-shape category with a fixed creation time
func newCategory(t *testing.T, name string, parent *catalog.Category, sortOrder int, createdAt time.Time) *catalog.Category {
	t.Helper()
	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	c, err := catalog.NewCategory(name, name+" services", parentID, sortOrder)
	require.NoError(t, err)
	c.CreatedAt = createdAt
	c.UpdatedAt = createdAt
	c.ClearDomainEvents()
	return c
}

func namesOf(categories []catalog.Category) []string {
	names := make([]string, len(categories))
	for i := range categories {
		names[i] = categories[i].Name
	}
	return names
}

// fixture stores a small hierarchy through the given repositories:
//
//	Cleaning (0)       products: 2
//	  Carpet Care (0)  products: 1
//	Plumbing (1)       inactive
//	  Leak Repair (0)
//	Painting (2)
type fixture struct {
	cleaning, carpet, plumbing, leak, painting *catalog.Category
}

func seedFixture(t *testing.T, categories catalog.CategoryRepository, products catalog.ProductRepository) fixture {
	t.Helper()
	ctx := context.Background()

	f := fixture{}
	f.cleaning = newCategory(t, "Cleaning", nil, 0, seedBase)
	f.carpet = newCategory(t, "Carpet Care", f.cleaning, 0, seedBase.Add(time.Hour))
	f.plumbing = newCategory(t, "plumbing", nil, 1, seedBase.Add(2*time.Hour))
	f.plumbing.Status = catalog.CategoryStatusInactive
	f.leak = newCategory(t, "Leak Repair", f.plumbing, 0, seedBase.Add(3*time.Hour))
	f.painting = newCategory(t, "Painting", nil, 2, seedBase.Add(4*time.Hour))

	for _, c := range []*catalog.Category{f.cleaning, f.carpet, f.plumbing, f.leak, f.painting} {
		require.NoError(t, categories.Save(ctx, c))
	}
	for _, p := range []struct {
		name string
		cat  *catalog.Category
	}{
		{"Standard Clean", f.cleaning},
		{"Office Clean", f.cleaning},
		{"Rug Shampoo", f.carpet},
		{"Gift Card", nil},
	} {
		var catID *uuid.UUID
		if p.cat != nil {
			catID = &p.cat.ID
		}
		product, err := catalog.NewProduct(p.name, catID)
		require.NoError(t, err)
		require.NoError(t, products.Save(ctx, product))
	}
	return f
}
