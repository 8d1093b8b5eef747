// Package testutil holds helpers shared by the catalog's integration tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

// EventRecorder is a shared.EventHandler that keeps every event it receives.
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewEventRecorder creates a recorder for the given event types; none means all events
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle records the event and returns the configured error.
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return r.err
}

// Handled returns a copy of the recorded events.
func (r *EventRecorder) Handled() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.handled))
	copy(out, r.handled)
	return out
}

// Types returns the type of each recorded event, in arrival order.
func (r *EventRecorder) Types() []string {
	events := r.Handled()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

// Count returns the number of recorded events.
func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

// SetError makes Handle fail with err.
func (r *EventRecorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Reset forgets recorded events and the configured error.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = nil
	r.err = nil
}

// WaitForEventCount fails the test unless the recorder sees at least n events within timeout.
func WaitForEventCount(t *testing.T, r *EventRecorder, n int, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Count() >= n }, timeout, 10*time.Millisecond,
		"expected %d events, got %d", n, r.Count())
}
