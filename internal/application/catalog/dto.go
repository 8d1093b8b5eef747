package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
)

// CreateCategoryRequest represents a request to create a new category
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=100"`
	Description string     `json:"description" binding:"max=500"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   *int       `json:"sort_order"`
	Status      string     `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateCategoryRequest represents a request to update a category; nil fields are left unchanged
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	SortOrder   *int    `json:"sort_order"`
	Status      *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// MoveCategoryRequest re-parents a category; a nil parent makes it top-level
type MoveCategoryRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// BulkDeleteRequest deletes several categories at once
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,max=100"`
}

// CategoryListQuery holds the server-side listing parameters; empty strings select defaults
type CategoryListQuery struct {
	Search    string
	Status    string
	Parent    string
	ParentID  *uuid.UUID
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Status      string     `json:"status"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"version"`
}

// CategoryWithStatsResponse is a category with its derived counts
type CategoryWithStatsResponse struct {
	CategoryResponse
	ProductCount     int `json:"product_count"`
	SubcategoryCount int `json:"subcategory_count"`
}

// CategoryTreeNode is one node of the category forest
type CategoryTreeNode struct {
	CategoryResponse
	Level       int                `json:"level"`
	HasChildren bool               `json:"has_children"`
	Children    []CategoryTreeNode `json:"children"`
}

// FlatCategoryItem is one row of the preorder display list
type FlatCategoryItem struct {
	CategoryResponse
	Level       int  `json:"level"`
	HasChildren bool `json:"has_children"`
}

// CategoryListResult is one server-side page of categories
type CategoryListResult struct {
	Items      []CategoryResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// DeleteCheck is the pre-flight answer for deleting a category
type DeleteCheck struct {
	CanDelete bool   `json:"can_delete"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ParentID:    c.ParentID,
		Status:      string(c.Status),
		SortOrder:   c.SortOrder,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToCategoryResponses converts a slice of categories
func ToCategoryResponses(categories []catalog.Category) []CategoryResponse {
	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = ToCategoryResponse(&categories[i])
	}
	return responses
}

// ToCategoryWithStatsResponses converts enriched categories
func ToCategoryWithStatsResponses(items []catalog.CategoryWithStats) []CategoryWithStatsResponse {
	responses := make([]CategoryWithStatsResponse, len(items))
	for i := range items {
		responses[i] = CategoryWithStatsResponse{
			CategoryResponse: ToCategoryResponse(&items[i].Category),
			ProductCount:     items[i].ProductCount,
			SubcategoryCount: items[i].SubcategoryCount,
		}
	}
	return responses
}

// ToCategoryTree converts a forest built by catalog.BuildTree
func ToCategoryTree(forest []*catalog.TreeNode) []CategoryTreeNode {
	nodes := make([]CategoryTreeNode, len(forest))
	for i, n := range forest {
		nodes[i] = CategoryTreeNode{
			CategoryResponse: ToCategoryResponse(&n.Category),
			Level:            n.Level,
			HasChildren:      n.HasChildren,
			Children:         ToCategoryTree(n.Children),
		}
	}
	return nodes
}

// ToFlatCategoryItems converts a preorder traversal produced by catalog.Flatten
func ToFlatCategoryItems(nodes []*catalog.TreeNode) []FlatCategoryItem {
	items := make([]FlatCategoryItem, len(nodes))
	for i, n := range nodes {
		items[i] = FlatCategoryItem{
			CategoryResponse: ToCategoryResponse(&n.Category),
			Level:            n.Level,
			HasChildren:      n.HasChildren,
		}
	}
	return items
}

// ListLimits bounds server-side pagination
type ListLimits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultListLimits returns the dashboard's page size limits
func DefaultListLimits() ListLimits {
	return ListLimits{DefaultPageSize: catalog.DefaultPageSize, MaxPageSize: 100}
}

// Normalize maps a requested page and page size onto valid values: page < 1 becomes 1,
// a non-positive size becomes the default and sizes above the maximum are capped.
// A page past the last one is left alone; it yields an empty page.
func (l ListLimits) Normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = l.DefaultPageSize
	}
	if l.MaxPageSize > 0 && pageSize > l.MaxPageSize {
		pageSize = l.MaxPageSize
	}
	return page, pageSize
}
