// Package catalog implements the category management use cases of the admin dashboard.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/cache"
	"github.com/homeservices/backend/internal/infrastructure/logger"
	"github.com/homeservices/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Conflict codes and reasons reported by CanDelete
const (
	CodeHasProducts       = "HAS_PRODUCTS"
	CodeHasChildren       = "HAS_CHILDREN"
	CodeInvalidParent     = "INVALID_PARENT"
	CodeCircularReference = "CIRCULAR_REFERENCE"

	ReasonHasProducts = "Cannot delete category that contains products"
	ReasonHasChildren = "Cannot delete category that has subcategories"
)

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
	events       shared.EventPublisher
	statsCache   cache.StatsCache
	statsTTL     time.Duration
	metrics      *telemetry.CatalogMetrics
	limits       ListLimits
	dataSource   string
	logger       *zap.Logger
}

// ServiceOption configures a CategoryService
type ServiceOption func(*CategoryService)

// WithEventPublisher publishes the domain events of every successful mutation
func WithEventPublisher(p shared.EventPublisher) ServiceOption {
	return func(s *CategoryService) { s.events = p }
}

// WithStatsCache caches dashboard stats for ttl
func WithStatsCache(c cache.StatsCache, ttl time.Duration) ServiceOption {
	return func(s *CategoryService) {
		s.statsCache = c
		s.statsTTL = ttl
	}
}

// WithMetrics records list latency and mutation outcomes
func WithMetrics(m *telemetry.CatalogMetrics) ServiceOption {
	return func(s *CategoryService) { s.metrics = m }
}

// WithListLimits overrides the default page size limits
func WithListLimits(l ListLimits) ServiceOption {
	return func(s *CategoryService) { s.limits = l }
}

// WithDataSource names the backing data source (database or mock) in metrics and spans
func WithDataSource(name string) ServiceOption {
	return func(s *CategoryService) { s.dataSource = name }
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *CategoryService) { s.logger = l }
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	productRepo catalog.ProductRepository,
	opts ...ServiceOption,
) *CategoryService {
	s := &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		limits:       DefaultListLimits(),
		dataSource:   "database",
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("category_service")
	return s
}

// GetCategories returns one server-side page of categories
func (s *CategoryService) GetCategories(ctx context.Context, q CategoryListQuery) (*CategoryListResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "list")
	defer span.End()
	start := time.Now()

	filter, err := s.toFilter(q)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	categories, err := s.categoryRepo.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	total, err := s.categoryRepo.Count(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordList(ctx, s.dataSource, time.Since(start))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrResultCount, len(categories),
		telemetry.SpanAttrDataSource, s.dataSource,
	)
	telemetry.SetOK(span)

	return &CategoryListResult{
		Items:      ToCategoryResponses(categories),
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: shared.TotalPages(total, filter.PageSize),
	}, nil
}

// toFilter validates the listing options and normalizes pagination
func (s *CategoryService) toFilter(q CategoryListQuery) (shared.Filter, error) {
	var details []shared.FieldError
	status, err := catalog.ParseStatusFilter(q.Status)
	details = appendFieldErrors(details, err)
	parent, err := catalog.ParseParentFilter(q.Parent)
	details = appendFieldErrors(details, err)
	sortBy, err := catalog.ParseSortField(q.SortBy)
	details = appendFieldErrors(details, err)
	sortDir, err := catalog.ParseSortDirection(q.SortOrder)
	details = appendFieldErrors(details, err)
	if len(details) > 0 {
		return shared.Filter{}, shared.NewValidationError(details...)
	}

	page, pageSize := s.limits.Normalize(q.Page, q.PageSize)
	filter := shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  string(sortBy),
		OrderDir: string(sortDir),
		Search:   q.Search,
		Filters: map[string]any{
			catalog.FilterKeyStatus: string(status),
			catalog.FilterKeyParent: string(parent),
		},
	}
	if q.ParentID != nil {
		filter.Filters[catalog.FilterKeyParentID] = *q.ParentID
	}
	return filter, nil
}

func appendFieldErrors(details []shared.FieldError, err error) []shared.FieldError {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return append(details, de.Details...)
	}
	return details
}

// GetCategoriesWithStats returns every category with its product and subcategory counts
func (s *CategoryService) GetCategoriesWithStats(ctx context.Context) ([]CategoryWithStatsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "list_with_stats")
	defer span.End()

	items, err := s.loadWithStats(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrResultCount, len(items))
	telemetry.SetOK(span)
	return ToCategoryWithStatsResponses(items), nil
}

// QueryWithStats runs the in-process list engine over a fresh snapshot
func (s *CategoryService) QueryWithStats(ctx context.Context, state catalog.ListState) (catalog.ListResult, error) {
	start := time.Now()
	items, err := s.loadWithStats(ctx)
	if err != nil {
		return catalog.ListResult{}, err
	}
	result := catalog.Query(items, state)
	s.metrics.RecordList(ctx, s.dataSource, time.Since(start))
	return result, nil
}

// loadWithStats loads the category snapshot and product counts and enriches one with the other
func (s *CategoryService) loadWithStats(ctx context.Context) ([]catalog.CategoryWithStats, error) {
	categories, err := s.categoryRepo.FindSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.productRepo.CountGroupedByCategory(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.WithStats(categories, counts), nil
}

// DashboardStats returns dashboard-wide totals, served from the stats cache when fresh
func (s *CategoryService) DashboardStats(ctx context.Context) (catalog.DashboardStats, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "dashboard_stats")
	defer span.End()

	if s.statsCache != nil {
		cached, ok, err := s.statsCache.Get(ctx)
		if err != nil {
			s.logger.Warn("Stats cache read failed", zap.Error(err))
		} else if ok {
			telemetry.SetAttribute(span, "cache_hit", true)
			telemetry.SetOK(span)
			return *cached, nil
		}
	}

	stats, err := s.RefreshDashboardStats(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return catalog.DashboardStats{}, err
	}
	telemetry.SetOK(span)
	return stats, nil
}

// RefreshDashboardStats recomputes dashboard totals and stores them in the stats cache
func (s *CategoryService) RefreshDashboardStats(ctx context.Context) (catalog.DashboardStats, error) {
	items, err := s.loadWithStats(ctx)
	if err != nil {
		return catalog.DashboardStats{}, err
	}
	stats := catalog.ComputeDashboardStats(items)

	if s.statsCache != nil {
		if err := s.statsCache.Set(ctx, stats, s.statsTTL); err != nil {
			s.logger.Warn("Stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// GetByID retrieves a category by ID
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// GetSubcategories retrieves the direct children of a category
func (s *CategoryService) GetSubcategories(ctx context.Context, parentID uuid.UUID) ([]CategoryResponse, error) {
	if _, err := s.categoryRepo.FindByID(ctx, parentID); err != nil {
		return nil, err
	}
	children, err := s.categoryRepo.FindChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponses(children), nil
}

// GetTree retrieves categories as a forest
func (s *CategoryService) GetTree(ctx context.Context) ([]CategoryTreeNode, error) {
	forest, err := s.buildForest(ctx)
	if err != nil {
		return nil, err
	}
	return ToCategoryTree(forest), nil
}

// GetFlatTree retrieves the forest as a preorder display list
func (s *CategoryService) GetFlatTree(ctx context.Context) ([]FlatCategoryItem, error) {
	forest, err := s.buildForest(ctx)
	if err != nil {
		return nil, err
	}
	return ToFlatCategoryItems(catalog.Flatten(forest)), nil
}

func (s *CategoryService) buildForest(ctx context.Context) ([]*catalog.TreeNode, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "tree")
	defer span.End()

	categories, err := s.categoryRepo.FindSnapshot(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, issue := range catalog.ValidateHierarchy(categories) {
		fields := []zap.Field{
			zap.String("category_id", issue.CategoryID.String()),
			zap.String("issue", string(issue.Kind)),
		}
		if issue.ParentID != nil {
			fields = append(fields, zap.String("parent_id", issue.ParentID.String()))
		}
		s.logger.Warn("Category promoted to root", fields...)
	}

	forest := catalog.BuildTree(categories)
	telemetry.SetAttribute(span, telemetry.SpanAttrResultCount, len(categories))
	telemetry.SetOK(span)
	return forest, nil
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "create")
	defer span.End()

	resp, err := s.create(ctx, req)
	s.finishMutation(ctx, span, "create", err)
	return resp, err
}

func (s *CategoryService) create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}
	category, err := catalog.NewCategory(req.Name, req.Description, req.ParentID, sortOrder)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if err := s.ensureParentExists(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	if req.Status == string(catalog.CategoryStatusInactive) {
		if err := category.Deactivate(); err != nil {
			return nil, err
		}
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publish(ctx, category)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Update updates the basic information and status of a category
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "update")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrCategoryID, id.String())

	resp, err := s.update(ctx, id, req)
	s.finishMutation(ctx, span, "update", err)
	return resp, err
}

func (s *CategoryService) update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, description, sortOrder := category.Name, category.Description, category.SortOrder
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}
	if name != category.Name || description != category.Description || sortOrder != category.SortOrder {
		if err := category.Update(name, description, sortOrder); err != nil {
			return nil, err
		}
	}

	if req.Status != nil && *req.Status != string(category.Status) {
		switch catalog.CategoryStatus(*req.Status) {
		case catalog.CategoryStatusActive:
			err = category.Activate()
		case catalog.CategoryStatusInactive:
			err = category.Deactivate()
		default:
			err = shared.NewValidationError(shared.FieldError{Field: "status", Message: "status must be one of: active, inactive"})
		}
		if err != nil {
			return nil, err
		}
	}

	if len(category.GetDomainEvents()) == 0 {
		resp := ToCategoryResponse(category)
		return &resp, nil
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publish(ctx, category)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Move re-parents a category. The new parent must exist and must not be the
// category itself or one of its descendants.
func (s *CategoryService) Move(ctx context.Context, id uuid.UUID, req MoveCategoryRequest) (*CategoryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "move")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrCategoryID, id.String())
	if req.ParentID != nil {
		telemetry.SetAttribute(span, telemetry.SpanAttrParentID, req.ParentID.String())
	}

	resp, err := s.move(ctx, id, req)
	s.finishMutation(ctx, span, "move", err)
	return resp, err
}

func (s *CategoryService) move(ctx context.Context, id uuid.UUID, req MoveCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, shared.NewValidationError(shared.FieldError{Field: "parent_id", Message: "a category cannot be its own parent"}).
				WithCode(CodeInvalidParent)
		}
		if err := s.ensureParentExists(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		snapshot, err := s.categoryRepo.FindSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		if catalog.WouldCreateCycle(snapshot, id, *req.ParentID) {
			return nil, shared.NewConflictError(CodeCircularReference, "Cannot move category to its own descendant")
		}
	}

	if err := category.MoveTo(req.ParentID); err != nil {
		return nil, err
	}
	if len(category.GetDomainEvents()) > 0 {
		if err := s.categoryRepo.Save(ctx, category); err != nil {
			return nil, err
		}
		s.publish(ctx, category)
	}

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Activate activates a category
func (s *CategoryService) Activate(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	return s.transition(ctx, id, "activate", (*catalog.Category).Activate)
}

// Deactivate deactivates a category
func (s *CategoryService) Deactivate(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	return s.transition(ctx, id, "deactivate", (*catalog.Category).Deactivate)
}

func (s *CategoryService) transition(ctx context.Context, id uuid.UUID, op string, apply func(*catalog.Category) error) (*CategoryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", op)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrCategoryID, id.String())

	resp, err := func() (*CategoryResponse, error) {
		category, err := s.categoryRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := apply(category); err != nil {
			return nil, err
		}
		if err := s.categoryRepo.Save(ctx, category); err != nil {
			return nil, err
		}
		s.publish(ctx, category)
		resp := ToCategoryResponse(category)
		return &resp, nil
	}()
	s.finishMutation(ctx, span, op, err)
	return resp, err
}

// CanDelete reports whether a category can be deleted. Categories holding products
// or subcategories cannot; products are checked first.
func (s *CategoryService) CanDelete(ctx context.Context, id uuid.UUID) (*DeleteCheck, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.deleteCheck(ctx, category.ID)
}

func (s *CategoryService) deleteCheck(ctx context.Context, id uuid.UUID) (*DeleteCheck, error) {
	products, err := s.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if products > 0 {
		return &DeleteCheck{CanDelete: false, Code: CodeHasProducts, Reason: ReasonHasProducts}, nil
	}

	children, err := s.categoryRepo.CountChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	if children > 0 {
		return &DeleteCheck{CanDelete: false, Code: CodeHasChildren, Reason: ReasonHasChildren}, nil
	}
	return &DeleteCheck{CanDelete: true}, nil
}

// Delete deletes a category after the CanDelete pre-flight check
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrCategoryID, id.String())

	err := func() error {
		category, err := s.categoryRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		check, err := s.deleteCheck(ctx, id)
		if err != nil {
			return err
		}
		if !check.CanDelete {
			return shared.NewConflictError(check.Code, check.Reason)
		}
		if err := s.categoryRepo.Delete(ctx, id); err != nil {
			return err
		}
		category.MarkDeleted()
		s.publish(ctx, category)
		return nil
	}()
	s.finishMutation(ctx, span, "delete", err)
	return err
}

// BulkDelete deletes every given category or none of them. Each id is pre-flighted;
// the first blocked category aborts the whole batch.
func (s *CategoryService) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "bulk_delete")
	defer span.End()

	ids = uniqueIDs(ids)
	telemetry.SetAttribute(span, telemetry.SpanAttrBulkSize, len(ids))

	err := s.bulkDelete(ctx, ids)
	s.finishMutation(ctx, span, "bulk_delete", err)
	return err
}

func (s *CategoryService) bulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return shared.NewValidationError(shared.FieldError{Field: "ids", Message: "at least one category must be selected"})
	}

	categories := make([]*catalog.Category, 0, len(ids))
	for _, id := range ids {
		category, err := s.categoryRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		check, err := s.deleteCheck(ctx, id)
		if err != nil {
			return err
		}
		if !check.CanDelete {
			return shared.NewConflictError(check.Code, fmt.Sprintf("%s: %s", category.Name, check.Reason))
		}
		categories = append(categories, category)
	}

	if err := s.categoryRepo.DeleteBatch(ctx, ids); err != nil {
		return err
	}
	for _, category := range categories {
		category.MarkDeleted()
		s.publish(ctx, category)
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ensureParentExists turns a missing parent into an INVALID_PARENT validation error
func (s *CategoryService) ensureParentExists(ctx context.Context, parentID uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, parentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError(shared.FieldError{Field: "parent_id", Message: "parent category not found"}).
				WithCode(CodeInvalidParent)
		}
		return err
	}
	return nil
}

// publish hands the aggregate's pending events to the event bus. Failures are logged:
// the mutation is already committed.
func (s *CategoryService) publish(ctx context.Context, category *catalog.Category) {
	events := category.GetDomainEvents()
	category.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Failed to publish category events",
			zap.String("category_id", category.ID.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

// finishMutation records the outcome of a mutation on its span and in metrics
func (s *CategoryService) finishMutation(ctx context.Context, span trace.Span, op string, err error) {
	switch {
	case err == nil:
		telemetry.SetOK(span)
		s.metrics.RecordMutation(ctx, op, telemetry.OutcomeSuccess)
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrNotFound):
		telemetry.RecordError(span, err)
		s.metrics.RecordMutation(ctx, op, telemetry.OutcomeRejected)
	default:
		telemetry.RecordError(span, err)
		s.metrics.RecordMutation(ctx, op, telemetry.OutcomeFailed)
		logger.Enrich(ctx, s.logger).Error("Category mutation failed", zap.String("operation", op), zap.Error(err))
	}
}
