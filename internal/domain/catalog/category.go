package catalog

import (
	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/shared"
)

// CategoryStatus represents the status of a category
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusInactive CategoryStatus = "inactive"
)

// IsValid reports whether s is a known status
func (s CategoryStatus) IsValid() bool {
	return s == CategoryStatusActive || s == CategoryStatusInactive
}

// Category represents a service category of the marketplace catalog.
// Categories form a forest through ParentID; a nil ParentID marks a top-level category.
type Category struct {
	shared.BaseAggregateRoot
	Name        string         `gorm:"type:varchar(100);not null"`
	Description string         `gorm:"type:varchar(500)"`
	ParentID    *uuid.UUID     `gorm:"type:uuid;index"`
	SortOrder   int            `gorm:"not null;default:0"`
	Status      CategoryStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new active category. Whether parentID refers to an existing
// category is checked by the caller, which owns the category snapshot.
func NewCategory(name, description string, parentID *uuid.UUID, sortOrder int) (*Category, error) {
	name, description = normalizeText(name), normalizeText(description)
	if err := ValidateCategoryFields(name, description); err != nil {
		return nil, err
	}

	category := &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       description,
		ParentID:          cloneID(parentID),
		SortOrder:         sortOrder,
		Status:            CategoryStatusActive,
	}
	if category.ParentID != nil && *category.ParentID == category.ID {
		return nil, errSelfParent()
	}

	category.AddDomainEvent(NewCategoryCreatedEvent(category))

	return category, nil
}

// Update updates the category's basic information
func (c *Category) Update(name, description string, sortOrder int) error {
	name, description = normalizeText(name), normalizeText(description)
	if err := ValidateCategoryFields(name, description); err != nil {
		return err
	}

	c.Name = name
	c.Description = description
	c.SortOrder = sortOrder
	c.Touch()

	c.AddDomainEvent(NewCategoryUpdatedEvent(c))

	return nil
}

// MoveTo re-parents the category. A nil parent makes it top-level.
// Cycle detection beyond self-parenting needs the whole hierarchy and is done with WouldCreateCycle.
func (c *Category) MoveTo(parentID *uuid.UUID) error {
	if parentID != nil && *parentID == c.ID {
		return errSelfParent()
	}
	if sameParent(c.ParentID, parentID) {
		return nil
	}

	oldParent := c.ParentID
	c.ParentID = cloneID(parentID)
	c.Touch()

	c.AddDomainEvent(NewCategoryMovedEvent(c, oldParent))

	return nil
}

// Activate activates the category
func (c *Category) Activate() error {
	if c.Status == CategoryStatusActive {
		return shared.NewConflictError("ALREADY_ACTIVE", "Category is already active")
	}

	c.Status = CategoryStatusActive
	c.Touch()

	c.AddDomainEvent(NewCategoryStatusChangedEvent(c, CategoryStatusInactive, CategoryStatusActive))

	return nil
}

// Deactivate deactivates the category
func (c *Category) Deactivate() error {
	if c.Status == CategoryStatusInactive {
		return shared.NewConflictError("ALREADY_INACTIVE", "Category is already inactive")
	}

	c.Status = CategoryStatusInactive
	c.Touch()

	c.AddDomainEvent(NewCategoryStatusChangedEvent(c, CategoryStatusActive, CategoryStatusInactive))

	return nil
}

// MarkDeleted records the deletion event; the repository performs the removal
func (c *Category) MarkDeleted() {
	c.AddDomainEvent(NewCategoryDeletedEvent(c))
}

// IsActive returns true if the category is active
func (c *Category) IsActive() bool {
	return c.Status == CategoryStatusActive
}

// IsRoot returns true if this is a top-level category
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

func errSelfParent() error {
	return shared.NewValidationError(shared.FieldError{Field: "parent_id", Message: "a category cannot be its own parent"})
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
