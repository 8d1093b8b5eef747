package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
)

// AggregateModel holds the columns every aggregate table shares.
// Version is compared on update for optimistic locking.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

func aggregateOf(a shared.BaseAggregateRoot) AggregateModel {
	return AggregateModel{ID: a.ID, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, Version: a.Version}
}

// root rebuilds the aggregate base; loaded aggregates start without pending events
func (m AggregateModel) root() shared.BaseAggregateRoot {
	return shared.RestoreAggregateRoot(
		shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		m.Version,
	)
}

type CategoryModel struct {
	AggregateModel
	Name        string                 `gorm:"type:varchar(100);not null"`
	Description string                 `gorm:"type:varchar(500);not null;default:''"`
	ParentID    *uuid.UUID             `gorm:"type:uuid;index"`
	SortOrder   int                    `gorm:"not null;default:0"`
	Status      catalog.CategoryStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

func (CategoryModel) TableName() string {
	return "categories"
}

func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseAggregateRoot: m.root(),
		Name:              m.Name,
		Description:       m.Description,
		ParentID:          m.ParentID,
		SortOrder:         m.SortOrder,
		Status:            m.Status,
	}
}

func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	return &CategoryModel{
		AggregateModel: aggregateOf(c.BaseAggregateRoot),
		Name:           c.Name,
		Description:    c.Description,
		ParentID:       c.ParentID,
		SortOrder:      c.SortOrder,
		Status:         c.Status,
	}
}

// CategoriesToDomain converts loaded rows, keeping their order
func CategoriesToDomain(rows []CategoryModel) []catalog.Category {
	out := make([]catalog.Category, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

// ProductModel only carries what the catalog needs to count products per category
type ProductModel struct {
	AggregateModel
	Name       string                `gorm:"type:varchar(200);not null"`
	CategoryID *uuid.UUID            `gorm:"type:uuid;index"`
	Status     catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

func (ProductModel) TableName() string {
	return "products"
}

func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		AggregateModel: aggregateOf(p.BaseAggregateRoot),
		Name:           p.Name,
		CategoryID:     p.CategoryID,
		Status:         p.Status,
	}
}

// AllModels lists the models in dependency order for AutoMigrate
func AllModels() []any {
	return []any{&CategoryModel{}, &ProductModel{}}
}
