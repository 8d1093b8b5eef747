package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend records every load and answers it with respond
type scriptedBackend struct {
	mu      sync.Mutex
	states  []catalog.ListState
	respond func(call int, state catalog.ListState) (catalog.ListResult, error)
}

func (b *scriptedBackend) QueryWithStats(ctx context.Context, state catalog.ListState) (catalog.ListResult, error) {
	b.mu.Lock()
	b.states = append(b.states, state)
	call := len(b.states)
	b.mu.Unlock()

	if b.respond == nil {
		return catalog.ListResult{Page: state.Page, PageSize: state.PageSize}, nil
	}
	return b.respond(call, state)
}

func (b *scriptedBackend) BulkDelete(context.Context, []uuid.UUID) error {
	return errors.New("not supported")
}

func (b *scriptedBackend) calls() []catalog.ListState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]catalog.ListState(nil), b.states...)
}

func resultNamed(names ...string) catalog.ListResult {
	items := make([]catalog.CategoryWithStats, len(names))
	for i, name := range names {
		items[i] = catalog.CategoryWithStats{Category: catalog.Category{Name: name}}
		items[i].ID = uuid.New()
	}
	return catalog.ListResult{Items: items, TotalMatched: len(items), TotalPages: 1, Page: 1, PageSize: 10}
}

func openSession(t *testing.T, m *SessionManager) *ListSession {
	t.Helper()
	session, err := m.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(m.CloseAll)
	return session
}

func TestSessionManager_Open(t *testing.T) {
	f := newFixture(t)
	m := NewSessionManager(f.service(), SessionConfig{}, nil, nil)
	session := openSession(t, m)

	view := session.View()
	assert.Equal(t, "all", view.Status)
	assert.Equal(t, "all", view.Parent)
	assert.Equal(t, "name", view.SortBy)
	assert.Equal(t, "asc", view.SortOrder)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 10, view.PageSize)
	assert.Equal(t, 5, view.TotalMatched)
	assert.Equal(t, []string{"Carpet Care", "Cleaning", "Leak Repair", "Painting", "Plumbing"}, statsNames(view.Items))
	assert.False(t, view.Loading)
	assert.Empty(t, view.Error)

	got, err := m.Get(session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, 1, m.Count())
}

func TestSessionManager_OpenFailure(t *testing.T) {
	backend := &scriptedBackend{respond: func(int, catalog.ListState) (catalog.ListResult, error) {
		return catalog.ListResult{}, shared.NewNetworkError("load categories", errors.New("timeout"))
	}}
	m := NewSessionManager(backend, SessionConfig{}, nil, nil)

	_, err := m.Open(context.Background())
	assert.True(t, errors.Is(err, shared.ErrNetwork))
	assert.Equal(t, 0, m.Count())
}

func TestSessionManager_GetAndClose(t *testing.T) {
	m := NewSessionManager(&scriptedBackend{}, SessionConfig{}, nil, nil)
	session := openSession(t, m)

	require.NoError(t, m.Close(session.ID()))
	_, err := m.Get(session.ID())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.True(t, errors.Is(m.Close(session.ID()), shared.ErrNotFound))

	assert.ErrorIs(t, session.Refresh(context.Background()), ErrSessionClosed)
	assert.ErrorIs(t, session.SetSearch("x"), ErrSessionClosed)
}

func TestSessionManager_SweepIdle(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewSessionManager(&scriptedBackend{}, SessionConfig{TTL: 10 * time.Minute}, nil, nil)
	m.now = func() time.Time { return now }

	idle := openSession(t, m)
	now = now.Add(6 * time.Minute)
	active := openSession(t, m)
	now = now.Add(5 * time.Minute)

	require.NoError(t, m.SweepIdle(context.Background()))

	assert.Equal(t, 1, m.Count())
	_, err := m.Get(idle.ID())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	_, err = m.Get(active.ID())
	assert.NoError(t, err)
}

func TestListSession_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := NewSessionManager(f.service(), SessionConfig{}, nil, nil)

	t.Run("filter change returns to the first page", func(t *testing.T) {
		session := openSession(t, m)
		require.NoError(t, session.Update(ctx, ListPatch{PageSize: ptr(2), Page: ptr(2)}))
		assert.Equal(t, 2, session.View().Page)

		require.NoError(t, session.Update(ctx, ListPatch{Status: ptr("active")}))
		view := session.View()
		assert.Equal(t, 1, view.Page)
		assert.Equal(t, 2, view.PageSize)
		assert.Equal(t, 4, view.TotalMatched)
		assert.Equal(t, []string{"Carpet Care", "Cleaning"}, statsNames(view.Items))
	})

	t.Run("explicit page wins over the reset", func(t *testing.T) {
		session := openSession(t, m)
		require.NoError(t, session.Update(ctx, ListPatch{SortBy: ptr("createdAt"), SortOrder: ptr("desc"), PageSize: ptr(2), Page: ptr(2)}))
		view := session.View()
		assert.Equal(t, 2, view.Page)
		assert.Equal(t, []string{"Plumbing", "Carpet Care"}, statsNames(view.Items))
	})

	t.Run("page size is capped", func(t *testing.T) {
		session := openSession(t, m)
		require.NoError(t, session.Update(ctx, ListPatch{PageSize: ptr(1000), Page: ptr(0)}))
		view := session.View()
		assert.Equal(t, 100, view.PageSize)
		assert.Equal(t, 1, view.Page)
	})

	t.Run("invalid option leaves the state alone", func(t *testing.T) {
		session := openSession(t, m)
		before := session.State()
		err := session.Update(ctx, ListPatch{Parent: ptr("grandchildren"), Status: ptr("inactive")})
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, before, session.State())
	})
}

func TestListSession_DiscardsStaleResponses(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &scriptedBackend{respond: func(call int, state catalog.ListState) (catalog.ListResult, error) {
		switch call {
		case 1:
			return resultNamed("Initial"), nil
		case 2:
			close(entered)
			<-release
			return resultNamed("Stale"), nil
		default:
			return resultNamed("Fresh"), nil
		}
	}}
	m := NewSessionManager(backend, SessionConfig{}, nil, nil)
	session := openSession(t, m)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- session.Update(ctx, ListPatch{Status: ptr("active")}) }()
	<-entered
	assert.True(t, session.Loading())

	require.NoError(t, session.Update(ctx, ListPatch{Status: ptr("inactive")}))
	close(release)
	require.NoError(t, <-slow)

	view := session.View()
	assert.Equal(t, []string{"Fresh"}, statsNames(view.Items))
	assert.Equal(t, "inactive", view.Status)
	assert.False(t, view.Loading)
	assert.Equal(t, uint64(3), view.Generation)
}

func TestListSession_FailedLoadKeepsPreviousPage(t *testing.T) {
	backend := &scriptedBackend{respond: func(call int, state catalog.ListState) (catalog.ListResult, error) {
		if call == 1 {
			return resultNamed("Cleaning"), nil
		}
		return catalog.ListResult{}, shared.NewNetworkError("load categories", errors.New("connection refused"))
	}}
	m := NewSessionManager(backend, SessionConfig{}, nil, nil)
	session := openSession(t, m)

	err := session.Refresh(context.Background())
	assert.True(t, errors.Is(err, shared.ErrNetwork))

	view := session.View()
	assert.Equal(t, []string{"Cleaning"}, statsNames(view.Items))
	assert.False(t, view.Loading)
	assert.Contains(t, view.Error, "load categories failed")
}

func TestListSession_SetSearchDebounces(t *testing.T) {
	backend := &scriptedBackend{}
	m := NewSessionManager(backend, SessionConfig{Debounce: 30 * time.Millisecond}, nil, nil)
	session := openSession(t, m)
	require.NoError(t, session.Update(context.Background(), ListPatch{Page: ptr(3)}))

	for _, term := range []string{"c", "cl", "cle", "clea"} {
		require.NoError(t, session.SetSearch(term))
	}
	assert.True(t, session.View().SearchPending)

	require.Eventually(t, func() bool { return len(backend.calls()) == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	calls := backend.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "clea", calls[2].SearchTerm)
	assert.Equal(t, 1, calls[2].Page)

	view := session.View()
	assert.Equal(t, "clea", view.SearchTerm)
	assert.False(t, view.SearchPending)
}

func TestListSession_ApplySearchCancelsPending(t *testing.T) {
	backend := &scriptedBackend{}
	m := NewSessionManager(backend, SessionConfig{Debounce: 30 * time.Millisecond}, nil, nil)
	session := openSession(t, m)

	require.NoError(t, session.SetSearch("plumb"))
	require.NoError(t, session.ApplySearch(context.Background(), "paint"))
	time.Sleep(60 * time.Millisecond)

	calls := backend.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "paint", calls[1].SearchTerm)
}

func TestListSession_CloseDropsPendingSearch(t *testing.T) {
	backend := &scriptedBackend{}
	m := NewSessionManager(backend, SessionConfig{Debounce: 20 * time.Millisecond}, nil, nil)
	session := openSession(t, m)

	require.NoError(t, session.SetSearch("plumb"))
	session.Close()
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, backend.calls(), 1)
}

func TestListSession_Selection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := NewSessionManager(f.service(), SessionConfig{}, nil, nil)

	t.Run("survives filter changes", func(t *testing.T) {
		session := openSession(t, m)
		assert.True(t, session.Toggle(f.plumbing.ID))
		require.NoError(t, session.Update(ctx, ListPatch{Status: ptr("active")}))

		assert.True(t, session.IsSelected(f.plumbing.ID))
		assert.Equal(t, []uuid.UUID{f.plumbing.ID}, session.View().Selected)

		assert.False(t, session.Toggle(f.plumbing.ID))
		assert.Empty(t, session.View().Selected)
	})

	t.Run("select all without ids takes the current page", func(t *testing.T) {
		session := openSession(t, m)
		require.NoError(t, session.Update(ctx, ListPatch{Parent: ptr("subcategories")}))
		session.SelectAll(nil)
		assert.ElementsMatch(t, []uuid.UUID{f.carpet.ID, f.leak.ID}, session.View().Selected)

		session.ClearSelection()
		assert.Empty(t, session.View().Selected)
	})

	t.Run("bulk delete clears the deleted ids and reloads", func(t *testing.T) {
		f := newFixture(t)
		m := NewSessionManager(f.service(), SessionConfig{}, nil, nil)
		session := openSession(t, m)

		session.SelectAll([]uuid.UUID{f.leak.ID, f.painting.ID})
		require.NoError(t, session.BulkDeleteSelected(ctx))

		view := session.View()
		assert.Empty(t, view.Selected)
		assert.Equal(t, 3, view.TotalMatched)
		assert.Equal(t, []string{"Carpet Care", "Cleaning", "Plumbing"}, statsNames(view.Items))
	})

	t.Run("blocked bulk delete keeps the selection", func(t *testing.T) {
		f := newFixture(t)
		m := NewSessionManager(f.service(), SessionConfig{}, nil, nil)
		session := openSession(t, m)

		session.SelectAll([]uuid.UUID{f.painting.ID, f.cleaning.ID})
		err := session.BulkDeleteSelected(ctx)
		assert.True(t, errors.Is(err, shared.ErrConflict))

		view := session.View()
		assert.Equal(t, []uuid.UUID{f.painting.ID, f.cleaning.ID}, view.Selected)
		assert.Equal(t, 5, view.TotalMatched)
	})
}
