package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/shared"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func idOf(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func ptrID(n int) *uuid.UUID {
	id := idOf(n)
	return &id
}

// cat builds a category fixture with a deterministic id; parent 0 means top-level
func cat(id int, name string, parent int) Category {
	c := Category{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        idOf(id),
				CreatedAt: baseTime.Add(time.Duration(id) * time.Hour),
				UpdatedAt: baseTime.Add(time.Duration(id) * time.Hour),
			},
			Version: 1,
		},
		Name:   name,
		Status: CategoryStatusActive,
	}
	if parent != 0 {
		c.ParentID = ptrID(parent)
	}
	return c
}

func withStats(c Category, products int) CategoryWithStats {
	return CategoryWithStats{Category: c, ProductCount: products}
}

func idsOfNodes(nodes []*TreeNode) []uuid.UUID {
	ids := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Category.ID
	}
	return ids
}

func namesOf(items []CategoryWithStats) []string {
	names := make([]string, len(items))
	for i := range items {
		names[i] = items[i].Name
	}
	return names
}
