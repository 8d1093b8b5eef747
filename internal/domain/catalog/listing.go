package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/homeservices/backend/internal/domain/shared"
	"golang.org/x/text/cases"
)

// StatusFilter restricts a listing by category status
type StatusFilter string

const (
	StatusFilterAll      StatusFilter = "all"
	StatusFilterActive   StatusFilter = "active"
	StatusFilterInactive StatusFilter = "inactive"
)

// ParentFilter restricts a listing by position in the hierarchy
type ParentFilter string

const (
	ParentFilterAll           ParentFilter = "all"
	ParentFilterTopLevel      ParentFilter = "top-level"
	ParentFilterSubcategories ParentFilter = "subcategories"
)

// SortField names the attribute a listing is ordered by
type SortField string

const (
	SortByName         SortField = "name"
	SortByCreatedAt    SortField = "createdAt"
	SortByProductCount SortField = "productCount"
	SortByStatus       SortField = "status"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Listing defaults
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// ListState is the complete set of inputs of a category listing
type ListState struct {
	SearchTerm string
	Status     StatusFilter
	Parent     ParentFilter
	SortBy     SortField
	SortOrder  SortDirection
	Page       int
	PageSize   int
}

// DefaultListState returns the state of a freshly opened list: everything, by name, first page
func DefaultListState() ListState {
	return ListState{
		Status:    StatusFilterAll,
		Parent:    ParentFilterAll,
		SortBy:    SortByName,
		SortOrder: SortAsc,
		Page:      DefaultPage,
		PageSize:  DefaultPageSize,
	}
}

// ListResult is one page of a listing
type ListResult struct {
	Items        []CategoryWithStats
	TotalMatched int
	TotalPages   int
	Page         int
	PageSize     int
}

// ParseStatusFilter parses a status filter; empty means all
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(s); f {
	case "":
		return StatusFilterAll, nil
	case StatusFilterAll, StatusFilterActive, StatusFilterInactive:
		return f, nil
	}
	return "", invalidOption("status", s, StatusFilterAll, StatusFilterActive, StatusFilterInactive)
}

// ParseParentFilter parses a parent filter; empty means all
func ParseParentFilter(s string) (ParentFilter, error) {
	switch f := ParentFilter(s); f {
	case "":
		return ParentFilterAll, nil
	case ParentFilterAll, ParentFilterTopLevel, ParentFilterSubcategories:
		return f, nil
	}
	return "", invalidOption("parent", s, ParentFilterAll, ParentFilterTopLevel, ParentFilterSubcategories)
}

// ParseSortField parses a sort field; empty means name
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case "":
		return SortByName, nil
	case SortByName, SortByCreatedAt, SortByProductCount, SortByStatus:
		return f, nil
	}
	return "", invalidOption("sort_by", s, SortByName, SortByCreatedAt, SortByProductCount, SortByStatus)
}

// ParseSortDirection parses a sort direction, case-insensitively; empty means ascending
func ParseSortDirection(s string) (SortDirection, error) {
	switch d := SortDirection(strings.ToLower(s)); d {
	case "":
		return SortAsc, nil
	case SortAsc, SortDesc:
		return d, nil
	}
	return "", invalidOption("sort_order", s, SortAsc, SortDesc)
}

func invalidOption[T ~string](field, value string, allowed ...T) error {
	opts := make([]string, len(allowed))
	for i, a := range allowed {
		opts[i] = string(a)
	}
	return shared.NewValidationError(shared.FieldError{
		Field:   field,
		Message: fmt.Sprintf("unsupported value %q, expected one of: %s", value, strings.Join(opts, ", ")),
	})
}

// Query runs the listing pipeline: search, status filter, parent filter, stable sort, paginate.
// A page past the end yields an empty page; the engine never clamps.
func Query(items []CategoryWithStats, state ListState) ListResult {
	filtered := FilterCategories(items, state)
	sorted := SortCategories(filtered, state.SortBy, state.SortOrder)
	page := Paginate(sorted, state.Page, state.PageSize)

	totalPages := 0
	if state.PageSize > 0 {
		totalPages = shared.TotalPages(int64(len(sorted)), state.PageSize)
	} else if len(sorted) > 0 {
		totalPages = 1
	}

	return ListResult{
		Items:        page,
		TotalMatched: len(sorted),
		TotalPages:   totalPages,
		Page:         state.Page,
		PageSize:     state.PageSize,
	}
}

// FilterCategories applies the search, status and parent predicates, keeping input order
func FilterCategories(items []CategoryWithStats, state ListState) []CategoryWithStats {
	folder := cases.Fold()
	term := folder.String(state.SearchTerm)

	result := make([]CategoryWithStats, 0, len(items))
	for i := range items {
		c := &items[i]
		if term != "" &&
			!strings.Contains(folder.String(c.Name), term) &&
			!strings.Contains(folder.String(c.Description), term) {
			continue
		}
		if !matchesStatus(c.Status, state.Status) || !matchesParent(c.ParentID == nil, state.Parent) {
			continue
		}
		result = append(result, *c)
	}
	return result
}

func matchesStatus(status CategoryStatus, filter StatusFilter) bool {
	switch filter {
	case StatusFilterActive:
		return status == CategoryStatusActive
	case StatusFilterInactive:
		return status == CategoryStatusInactive
	default:
		return true
	}
}

func matchesParent(isRoot bool, filter ParentFilter) bool {
	switch filter {
	case ParentFilterTopLevel:
		return isRoot
	case ParentFilterSubcategories:
		return !isRoot
	default:
		return true
	}
}

// sortEntry pairs an item with its precomputed case-folded key
type sortEntry struct {
	item CategoryWithStats
	key  string
}

type comparator func(a, b *sortEntry) int

// comparatorFor returns the ascending comparator of a sort field and the text key it needs, if any
func comparatorFor(field SortField) (comparator, func(*CategoryWithStats) string) {
	switch field {
	case SortByStatus:
		return compareKeys, func(c *CategoryWithStats) string { return string(c.Status) }
	case SortByCreatedAt:
		return func(a, b *sortEntry) int { return a.item.CreatedAt.Compare(b.item.CreatedAt) }, nil
	case SortByProductCount:
		return func(a, b *sortEntry) int { return cmp.Compare(a.item.ProductCount, b.item.ProductCount) }, nil
	case SortByName:
		fallthrough
	default:
		return compareKeys, func(c *CategoryWithStats) string { return c.Name }
	}
}

func compareKeys(a, b *sortEntry) int {
	return strings.Compare(a.key, b.key)
}

// SortCategories returns a stably sorted copy. Descending order inverts the comparison,
// so equal elements keep their relative order in both directions.
func SortCategories(items []CategoryWithStats, field SortField, dir SortDirection) []CategoryWithStats {
	compare, keyOf := comparatorFor(field)

	entries := make([]sortEntry, len(items))
	folder := cases.Fold()
	for i := range items {
		entries[i].item = items[i]
		if keyOf != nil {
			entries[i].key = folder.String(keyOf(&items[i]))
		}
	}

	if dir == SortDesc {
		asc := compare
		compare = func(a, b *sortEntry) int { return asc(b, a) }
	}
	slices.SortStableFunc(entries, func(a, b sortEntry) int { return compare(&a, &b) })

	result := make([]CategoryWithStats, len(entries))
	for i := range entries {
		result[i] = entries[i].item
	}
	return result
}

// Paginate returns the 1-based page of the given size. A non-positive size returns
// everything on page 1; a page outside the range returns an empty slice.
func Paginate(items []CategoryWithStats, page, pageSize int) []CategoryWithStats {
	if pageSize <= 0 {
		if page == 1 {
			return items
		}
		return []CategoryWithStats{}
	}
	if page < 1 {
		return []CategoryWithStats{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []CategoryWithStats{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}
