package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "category_id", "status", "version", "updated_at"}),
		}).
		Create(model).Error
	return translateError("save product", err)
}

// CountByCategory counts products filed directly under a category
func (r *GormProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return 0, translateError("count products", err)
	}
	return count, nil
}

type categoryCount struct {
	CategoryID uuid.UUID
	Total      int
}

// CountGroupedByCategory returns product counts keyed by category id
func (r *GormProductRepository) CountGroupedByCategory(ctx context.Context) (map[uuid.UUID]int, error) {
	var rows []categoryCount
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, translateError("count products by category", err)
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	return counts, nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
