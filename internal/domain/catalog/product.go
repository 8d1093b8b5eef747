package catalog

import (
	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a bookable service offered by providers, filed under a category.
// Products are owned by the product catalog; categories only read their counts.
type Product struct {
	shared.BaseAggregateRoot
	Name       string        `gorm:"type:varchar(200);not null"`
	CategoryID *uuid.UUID    `gorm:"type:uuid;index"`
	Status     ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new active product in the given category
func NewProduct(name string, categoryID *uuid.UUID) (*Product, error) {
	name = normalizeText(name)
	if name == "" {
		return nil, shared.NewValidationError(shared.FieldError{Field: "name", Message: "name is required"})
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		CategoryID:        cloneID(categoryID),
		Status:            ProductStatusActive,
	}, nil
}
