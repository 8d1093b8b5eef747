package catalog

import (
	"sync"

	"github.com/google/uuid"
)

// SelectionTracker keeps the set of selected category ids across filter, sort and page changes.
// Nothing but Toggle, Remove and Clear ever takes an id out of the set.
type SelectionTracker struct {
	mu    sync.RWMutex
	ids   map[uuid.UUID]struct{}
	order []uuid.UUID
}

// NewSelectionTracker creates an empty selection
func NewSelectionTracker() *SelectionTracker {
	return &SelectionTracker{
		ids: make(map[uuid.UUID]struct{}),
	}
}

// Toggle flips the membership of id and reports whether it is now selected
func (s *SelectionTracker) Toggle(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		s.remove(id)
		return false
	}
	s.add(id)
	return true
}

// SelectAll adds ids to the current selection
func (s *SelectionTracker) SelectAll(ids []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			s.add(id)
		}
	}
}

// Remove deselects the given ids, ignoring ids that are not selected
func (s *SelectionTracker) Remove(ids []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			s.remove(id)
		}
	}
}

// Clear empties the selection
func (s *SelectionTracker) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[uuid.UUID]struct{})
	s.order = nil
}

// IsSelected reports whether id is selected
func (s *SelectionTracker) IsSelected(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[id]
	return ok
}

// Selected returns a copy of the selected ids in the order they were selected
func (s *SelectionTracker) Selected() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]uuid.UUID, len(s.order))
	copy(out, s.order)
	return out
}

// Count returns the number of selected ids
func (s *SelectionTracker) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}

func (s *SelectionTracker) add(id uuid.UUID) {
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *SelectionTracker) remove(id uuid.UUID) {
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
