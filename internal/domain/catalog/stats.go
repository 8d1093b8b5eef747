package catalog

import (
	"github.com/google/uuid"
)

// CategoryWithStats is a category enriched with derived counts
type CategoryWithStats struct {
	Category
	ProductCount     int
	SubcategoryCount int
}

// DashboardStats holds dashboard-wide category totals
type DashboardStats struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Inactive      int `json:"inactive"`
	TopLevel      int `json:"top_level"`
	WithProducts  int `json:"with_products"`
	TotalProducts int `json:"total_products"`
}

// WithStats enriches categories with product counts taken from productsByCategory
// and with the number of direct subcategories. Categories absent from the map have zero products.
func WithStats(categories []Category, productsByCategory map[uuid.UUID]int) []CategoryWithStats {
	children := make(map[uuid.UUID]int, len(categories))
	for i := range categories {
		if categories[i].ParentID != nil {
			children[*categories[i].ParentID]++
		}
	}

	result := make([]CategoryWithStats, len(categories))
	for i := range categories {
		result[i] = CategoryWithStats{
			Category:         categories[i],
			ProductCount:     productsByCategory[categories[i].ID],
			SubcategoryCount: children[categories[i].ID],
		}
	}
	return result
}

// ComputeDashboardStats aggregates totals over enriched categories in one pass
func ComputeDashboardStats(items []CategoryWithStats) DashboardStats {
	stats := DashboardStats{Total: len(items)}
	for i := range items {
		switch items[i].Status {
		case CategoryStatusActive:
			stats.Active++
		case CategoryStatusInactive:
			stats.Inactive++
		}
		if items[i].ParentID == nil {
			stats.TopLevel++
		}
		if items[i].ProductCount > 0 {
			stats.WithProducts++
			stats.TotalProducts += items[i].ProductCount
		}
	}
	return stats
}
