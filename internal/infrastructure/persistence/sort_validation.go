package persistence

import (
	"strings"

	"github.com/homeservices/backend/internal/domain/catalog"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields
// and returns the SQL expression to order by, or defaultExpr when it is not allowed.
func ValidateSortField(sortField string, allowedFields map[string]string, defaultExpr string) string {
	if expr, ok := allowedFields[strings.TrimSpace(sortField)]; ok {
		return expr
	}
	return defaultExpr
}

// productCountExpr counts products filed directly under the row's category
const productCountExpr = "(SELECT COUNT(*) FROM products WHERE products.category_id = categories.id)"

// defaultCategoryOrder is the snapshot order; it is also the tie-breaker for every
// other sort so equal keys keep a deterministic position.
const defaultCategoryOrder = "categories.sort_order ASC, categories.created_at ASC, categories.id ASC"

// CategorySortFields maps the list sort fields (and their column names) to SQL expressions
var CategorySortFields = map[string]string{
	string(catalog.SortByName):         "LOWER(categories.name)",
	string(catalog.SortByCreatedAt):    "categories.created_at",
	string(catalog.SortByProductCount): productCountExpr,
	string(catalog.SortByStatus):       "categories.status",
	"created_at":                       "categories.created_at",
	"product_count":                    productCountExpr,
	"sort_order":                       "categories.sort_order",
}
