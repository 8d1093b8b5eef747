package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds identity and audit timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BaseAggregateRoot is embedded by every aggregate. Version is checked on save
// against the version the aggregate was loaded at, and raised events stay
// pending until the application layer drains them.
type BaseAggregateRoot struct {
	BaseEntity
	Version int

	loaded  int
	pending []DomainEvent
}

// NewBaseAggregateRoot returns a root with a fresh id at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Version:    1,
	}
}

// RestoreAggregateRoot rebuilds a persisted root; the given version is the one
// a later save must still find in storage.
func RestoreAggregateRoot(entity BaseEntity, version int) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity, Version: version, loaded: version}
}

func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// LoadedVersion is the stored version this aggregate was read at, or 0 when it
// has never been persisted.
func (a *BaseAggregateRoot) LoadedVersion() int {
	return a.loaded
}

// MarkPersisted records that the current version is now the stored one
func (a *BaseAggregateRoot) MarkPersisted() {
	a.loaded = a.Version
}

// Touch records a state change: the version moves forward and UpdatedAt is stamped.
func (a *BaseAggregateRoot) Touch() {
	a.Version++
	a.UpdatedAt = time.Now()
}

// AddDomainEvent queues an event for publishing
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
