package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/homeservices/backend/internal/application/catalog"
	"github.com/homeservices/backend/internal/infrastructure/telemetry"
)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// listCategoriesParams are the query parameters of GET /catalog/categories.
// Filter and sort values are validated by the service so errors carry field details.
type listCategoriesParams struct {
	Search    string `form:"search" binding:"max=100"`
	Status    string `form:"status"`
	Parent    string `form:"parent"`
	ParentID  string `form:"parent_id" binding:"omitempty,uuid"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

func (p listCategoriesParams) toQuery() catalogapp.CategoryListQuery {
	q := catalogapp.CategoryListQuery{
		Search:    p.Search,
		Status:    p.Status,
		Parent:    p.Parent,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
		Page:      p.Page,
		PageSize:  p.PageSize,
	}
	if p.ParentID != "" {
		id := uuid.MustParse(p.ParentID)
		q.ParentID = &id
	}
	return q
}

// List returns one page of categories
// GET /catalog/categories
func (h *CategoryHandler) List(c *gin.Context) {
	var params listCategoriesParams
	if !h.bindQuery(c, &params) {
		return
	}

	timing := telemetry.StartServerTiming(c.Request.Context(), "categories", "category page query")
	result, err := h.categoryService.GetCategories(c.Request.Context(), params.toQuery())
	timing.Stop()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ListWithStats returns every category with product and subcategory counts
// GET /catalog/categories/stats
func (h *CategoryHandler) ListWithStats(c *gin.Context) {
	timing := telemetry.StartServerTiming(c.Request.Context(), "stats", "category counts")
	items, err := h.categoryService.GetCategoriesWithStats(c.Request.Context())
	timing.Stop()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Dashboard returns the dashboard-wide totals
// GET /catalog/categories/dashboard
func (h *CategoryHandler) Dashboard(c *gin.Context) {
	timing := telemetry.StartServerTiming(c.Request.Context(), "dashboard", "dashboard totals")
	stats, err := h.categoryService.DashboardStats(c.Request.Context())
	timing.Stop()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// GetTree returns the category forest
// GET /catalog/categories/tree
func (h *CategoryHandler) GetTree(c *gin.Context) {
	timing := telemetry.StartServerTiming(c.Request.Context(), "tree", "category forest")
	tree, err := h.categoryService.GetTree(c.Request.Context())
	timing.Stop()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// GetFlatTree returns the forest as an indented display list
// GET /catalog/categories/tree/flat
func (h *CategoryHandler) GetFlatTree(c *gin.Context) {
	timing := telemetry.StartServerTiming(c.Request.Context(), "tree", "flattened category forest")
	items, err := h.categoryService.GetFlatTree(c.Request.Context())
	timing.Stop()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// GetByID returns a single category
// GET /catalog/categories/:id
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	category, err := h.categoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// GetChildren returns the direct subcategories of a category
// GET /catalog/categories/:id/subcategories
func (h *CategoryHandler) GetChildren(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	children, err := h.categoryService.GetSubcategories(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, children)
}

// Create creates a category
// POST /catalog/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req catalogapp.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// Update changes a category's name, description, sort order or status
// PUT /catalog/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req catalogapp.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Move re-parents a category
// POST /catalog/categories/:id/move
func (h *CategoryHandler) Move(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req catalogapp.MoveCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Move(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Activate activates a category
// POST /catalog/categories/:id/activate
func (h *CategoryHandler) Activate(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	category, err := h.categoryService.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Deactivate deactivates a category
// POST /catalog/categories/:id/deactivate
func (h *CategoryHandler) Deactivate(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	category, err := h.categoryService.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// CanDelete reports whether a category may be deleted and why not
// GET /catalog/categories/:id/can-delete
func (h *CategoryHandler) CanDelete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	check, err := h.categoryService.CanDelete(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, check)
}

// Delete deletes a category
// DELETE /catalog/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// BulkDelete deletes several categories; nothing is deleted if any is blocked
// POST /catalog/categories/bulk-delete
func (h *CategoryHandler) BulkDelete(c *gin.Context) {
	var req catalogapp.BulkDeleteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.categoryService.BulkDelete(c.Request.Context(), req.IDs); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
