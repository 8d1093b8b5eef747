package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/shared"
)

// Filter keys understood by CategoryRepository.FindAll and Count
const (
	FilterKeyStatus   = "status"    // CategoryStatus
	FilterKeyParent   = "parent"    // ParentFilter
	FilterKeyParentID = "parent_id" // uuid.UUID
)

// CategoryRepository defines the interface for category persistence.
// Implementations report missing rows as shared.ErrNotFound and backing store failures as shared.ErrNetwork.
type CategoryRepository interface {
	// FindByID finds a category by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// FindAll finds one page of categories matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Category, error)

	// FindSnapshot loads every category ordered by sort order, then creation time
	FindSnapshot(ctx context.Context) ([]Category, error)

	// FindChildren finds all direct children of a category
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]Category, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error

	// Delete deletes a category
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteBatch deletes all given categories or none of them
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error

	// CountChildren counts the direct children of a category
	CountChildren(ctx context.Context, categoryID uuid.UUID) (int64, error)

	// Count counts categories matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// ProductRepository is the read side of the product catalog that categories depend on
type ProductRepository interface {
	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// CountByCategory counts products filed directly under a category
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	// CountGroupedByCategory returns product counts keyed by category id; uncategorized products are left out
	CountGroupedByCategory(ctx context.Context) (map[uuid.UUID]int, error)
}
