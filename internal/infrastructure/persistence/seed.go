package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
)

type seedCategory struct {
	name        string
	description string
	inactive    bool
	children    []seedCategory
	products    []string
}

// demoCatalog is the dashboard's demo data set
var demoCatalog = []seedCategory{
	{
		name: "Cleaning", description: "Home and office cleaning services",
		products: []string{"Standard Home Cleaning"},
		children: []seedCategory{
			{name: "Deep Cleaning", description: "Top-to-bottom cleaning for move-ins and move-outs", products: []string{"Move-out Deep Clean", "Kitchen Deep Clean"}},
			{name: "Carpet Cleaning", description: "Steam and dry carpet care", products: []string{"Carpet Steam Clean"}},
			{name: "Window Cleaning", description: "Interior and exterior window washing"},
		},
	},
	{
		name: "Plumbing", description: "Repairs and installations for pipes and fixtures",
		children: []seedCategory{
			{name: "Leak Repair", description: "Fix leaking taps, pipes and joints", products: []string{"Tap Leak Fix", "Pipe Joint Repair"}},
			{name: "Drain Unclogging", description: "Clear blocked sinks, showers and toilets", products: []string{"Kitchen Drain Unclog"}},
			{name: "Water Heater Service", description: "Boiler and water heater installs and repairs"},
		},
	},
	{
		name: "Electrical", description: "Licensed electricians for homes",
		children: []seedCategory{
			{name: "Wiring", description: "Rewiring and new circuits", products: []string{"Outlet Installation"}},
			{name: "Lighting Installation", description: "Fixtures, dimmers and outdoor lighting", products: []string{"Ceiling Light Install", "Dimmer Switch Install"}},
		},
	},
	{
		name: "Painting", description: "Interior and exterior painting",
		children: []seedCategory{
			{name: "Interior Painting", description: "Walls, ceilings and trim", products: []string{"Single Room Repaint"}},
			{name: "Exterior Painting", description: "Facades, fences and decks", inactive: true},
		},
	},
	{
		name: "Appliance Repair", description: "Repairs for major household appliances", inactive: true,
		children: []seedCategory{
			{name: "Washing Machine Repair", description: "Diagnostics and part replacement"},
		},
	},
	{name: "Pest Control", description: "Inspection and treatment for common pests", products: []string{"Ant Treatment", "Rodent Inspection"}},
	{name: "Moving", description: "Local moves and furniture transport"},
}

// SeedDemoData loads the demo catalog through the given repositories. Creation times are
// spaced one minute apart starting at base so that date sorting is deterministic.
func SeedDemoData(ctx context.Context, categories catalog.CategoryRepository, products catalog.ProductRepository, base time.Time) error {
	s := seeder{categories: categories, products: products, clock: base}
	for i, root := range demoCatalog {
		if err := s.seed(ctx, root, nil, i); err != nil {
			return err
		}
	}
	return nil
}

type seeder struct {
	categories catalog.CategoryRepository
	products   catalog.ProductRepository
	clock      time.Time
}

func (s *seeder) seed(ctx context.Context, node seedCategory, parent *catalog.Category, sortOrder int) error {
	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	category, err := catalog.NewCategory(node.name, node.description, parentID, sortOrder)
	if err != nil {
		return fmt.Errorf("seed category %q: %w", node.name, err)
	}
	category.CreatedAt = s.clock
	category.UpdatedAt = s.clock
	s.clock = s.clock.Add(time.Minute)
	if node.inactive {
		category.Status = catalog.CategoryStatusInactive
	}
	category.ClearDomainEvents()
	if err := s.categories.Save(ctx, category); err != nil {
		return fmt.Errorf("seed category %q: %w", node.name, err)
	}

	for _, name := range node.products {
		product, err := catalog.NewProduct(name, &category.ID)
		if err != nil {
			return fmt.Errorf("seed product %q: %w", name, err)
		}
		if err := s.products.Save(ctx, product); err != nil {
			return fmt.Errorf("seed product %q: %w", name, err)
		}
	}

	for i, child := range node.children {
		if err := s.seed(ctx, child, category, i); err != nil {
			return err
		}
	}
	return nil
}
