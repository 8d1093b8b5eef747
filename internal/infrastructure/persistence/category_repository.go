package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, translateError("find category", err)
	}
	return model.ToDomain(), nil
}

// FindAll finds one page of categories matching the filter
func (r *GormCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Category, error) {
	var rows []models.CategoryModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CategoryModel{}), filter)
	query = applyOrder(query, filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError("list categories", err)
	}
	return models.CategoriesToDomain(rows), nil
}

// FindSnapshot loads every category in snapshot order
func (r *GormCategoryRepository) FindSnapshot(ctx context.Context) ([]catalog.Category, error) {
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).Order(defaultCategoryOrder).Find(&rows).Error; err != nil {
		return nil, translateError("load categories", err)
	}
	return models.CategoriesToDomain(rows), nil
}

// FindChildren finds all direct children of a category
func (r *GormCategoryRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]catalog.Category, error) {
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order(defaultCategoryOrder).
		Find(&rows).Error; err != nil {
		return nil, translateError("list subcategories", err)
	}
	return models.CategoriesToDomain(rows), nil
}

// Save creates or updates a category. An update only applies while the stored
// version still equals the one the category was loaded at; otherwise it yields
// ErrConcurrencyConflict.
func (r *GormCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	model := models.CategoryModelFromDomain(category)
	db := r.db.WithContext(ctx)

	if category.LoadedVersion() == 0 {
		if err := db.Create(model).Error; err != nil {
			return translateError("create category", err)
		}
		category.MarkPersisted()
		return nil
	}

	result := db.Model(&models.CategoryModel{}).
		Where("id = ? AND version = ?", model.ID, category.LoadedVersion()).
		Updates(map[string]any{
			"name":        model.Name,
			"description": model.Description,
			"parent_id":   model.ParentID,
			"sort_order":  model.SortOrder,
			"status":      model.Status,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return translateError("update category", result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := db.Model(&models.CategoryModel{}).Where("id = ?", model.ID).Count(&exists).Error; err != nil {
			return translateError("save category", err)
		}
		if exists == 0 {
			return notFound(model.ID)
		}
		return shared.ErrConcurrencyConflict
	}
	category.MarkPersisted()
	return nil
}

// Delete deletes a category
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CategoryModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete category", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

// DeleteBatch deletes every id inside one transaction; a missing id rolls the whole batch back
func (r *GormCategoryRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			result := tx.Delete(&models.CategoryModel{}, "id = ?", id)
			if result.Error != nil {
				return translateError("bulk delete categories", result.Error)
			}
			if result.RowsAffected == 0 {
				return notFound(id)
			}
		}
		return nil
	})
}

// CountChildren counts the direct children of a category
func (r *GormCategoryRepository) CountChildren(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CategoryModel{}).
		Where("parent_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return 0, translateError("count subcategories", err)
	}
	return count, nil
}

// Count counts categories matching the filter
func (r *GormCategoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CategoryModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError("count categories", err)
	}
	return count, nil
}

// applyFilter applies search and key/value filters; unknown keys are ignored
func (r *GormCategoryRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		query = query.Where(`(LOWER(categories.name) LIKE ? ESCAPE '\' OR LOWER(categories.description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case catalog.FilterKeyStatus:
			if status := fmt.Sprint(value); status != "" && status != string(catalog.StatusFilterAll) {
				query = query.Where("categories.status = ?", status)
			}
		case catalog.FilterKeyParent:
			switch catalog.ParentFilter(fmt.Sprint(value)) {
			case catalog.ParentFilterTopLevel:
				query = query.Where("categories.parent_id IS NULL")
			case catalog.ParentFilterSubcategories:
				query = query.Where("categories.parent_id IS NOT NULL")
			}
		case catalog.FilterKeyParentID:
			switch v := value.(type) {
			case nil:
				query = query.Where("categories.parent_id IS NULL")
			case uuid.UUID:
				query = query.Where("categories.parent_id = ?", v)
			case *uuid.UUID:
				if v == nil {
					query = query.Where("categories.parent_id IS NULL")
				} else {
					query = query.Where("categories.parent_id = ?", *v)
				}
			}
		}
	}
	return query
}

func applyOrder(query *gorm.DB, filter shared.Filter) *gorm.DB {
	expr := ValidateSortField(filter.OrderBy, CategorySortFields, "")
	if expr == "" {
		return query.Order(defaultCategoryOrder)
	}
	return query.Order(expr + " " + ValidateSortOrder(filter.OrderDir) + ", " + defaultCategoryOrder)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Ensure GormCategoryRepository implements CategoryRepository
var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
