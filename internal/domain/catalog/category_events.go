package catalog

import (
	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/shared"
)

const AggregateTypeCategory = "Category"

const (
	EventTypeCategoryCreated       = "CategoryCreated"
	EventTypeCategoryUpdated       = "CategoryUpdated"
	EventTypeCategoryMoved         = "CategoryMoved"
	EventTypeCategoryStatusChanged = "CategoryStatusChanged"
	EventTypeCategoryDeleted       = "CategoryDeleted"
)

// CategoryEventTypes lists every event type a Category can raise.
// Handlers that derive data from the category set subscribe to all of them.
var CategoryEventTypes = []string{
	EventTypeCategoryCreated,
	EventTypeCategoryUpdated,
	EventTypeCategoryMoved,
	EventTypeCategoryStatusChanged,
	EventTypeCategoryDeleted,
}

// CategorySnapshot is the part of a category carried by most events
type CategorySnapshot struct {
	CategoryID uuid.UUID  `json:"category_id"`
	Name       string     `json:"name"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
}

func snapshotOf(c *Category) CategorySnapshot {
	return CategorySnapshot{CategoryID: c.ID, Name: c.Name, ParentID: cloneID(c.ParentID)}
}

func categoryHeader(eventType string, c *Category) shared.EventHeader {
	return shared.NewEventHeader(eventType, AggregateTypeCategory, c.ID)
}

type CategoryCreatedEvent struct {
	shared.EventHeader
	CategorySnapshot
}

func NewCategoryCreatedEvent(c *Category) *CategoryCreatedEvent {
	return &CategoryCreatedEvent{categoryHeader(EventTypeCategoryCreated, c), snapshotOf(c)}
}

type CategoryUpdatedEvent struct {
	shared.EventHeader
	CategorySnapshot
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

func NewCategoryUpdatedEvent(c *Category) *CategoryUpdatedEvent {
	return &CategoryUpdatedEvent{
		EventHeader:      categoryHeader(EventTypeCategoryUpdated, c),
		CategorySnapshot: snapshotOf(c),
		Description:      c.Description,
		SortOrder:        c.SortOrder,
	}
}

// CategoryMovedEvent records a re-parent; a nil id on either side means top level
type CategoryMovedEvent struct {
	shared.EventHeader
	CategoryID  uuid.UUID  `json:"category_id"`
	OldParentID *uuid.UUID `json:"old_parent_id,omitempty"`
	NewParentID *uuid.UUID `json:"new_parent_id,omitempty"`
}

func NewCategoryMovedEvent(c *Category, oldParent *uuid.UUID) *CategoryMovedEvent {
	return &CategoryMovedEvent{
		EventHeader: categoryHeader(EventTypeCategoryMoved, c),
		CategoryID:  c.ID,
		OldParentID: cloneID(oldParent),
		NewParentID: cloneID(c.ParentID),
	}
}

type CategoryStatusChangedEvent struct {
	shared.EventHeader
	CategoryID uuid.UUID      `json:"category_id"`
	OldStatus  CategoryStatus `json:"old_status"`
	NewStatus  CategoryStatus `json:"new_status"`
}

func NewCategoryStatusChangedEvent(c *Category, from, to CategoryStatus) *CategoryStatusChangedEvent {
	return &CategoryStatusChangedEvent{categoryHeader(EventTypeCategoryStatusChanged, c), c.ID, from, to}
}

// CategoryDeletedEvent keeps the last known name and parent so consumers need not look them up
type CategoryDeletedEvent struct {
	shared.EventHeader
	CategorySnapshot
}

func NewCategoryDeletedEvent(c *Category) *CategoryDeletedEvent {
	return &CategoryDeletedEvent{categoryHeader(EventTypeCategoryDeleted, c), snapshotOf(c)}
}
