package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/scheduler"
	"github.com/homeservices/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by operations on a closed list session
var ErrSessionClosed = shared.NewConflictError("SESSION_CLOSED", "List session is closed")

// refreshTimeout bounds loads started by the debouncer, which have no caller context
const refreshTimeout = 10 * time.Second

// ListBackend is what a list session needs from the category service
type ListBackend interface {
	QueryWithStats(ctx context.Context, state catalog.ListState) (catalog.ListResult, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) error
}

// ListPatch changes the filter, sort and page of a session; nil fields are left unchanged
type ListPatch struct {
	Status    *string `json:"status"`
	Parent    *string `json:"parent"`
	SortBy    *string `json:"sort_by"`
	SortOrder *string `json:"sort_order"`
	Page      *int    `json:"page"`
	PageSize  *int    `json:"page_size"`
}

// SessionView is a consistent snapshot of a list session
type SessionView struct {
	ID            uuid.UUID                   `json:"id"`
	SearchTerm    string                      `json:"search_term"`
	Status        string                      `json:"status"`
	Parent        string                      `json:"parent"`
	SortBy        string                      `json:"sort_by"`
	SortOrder     string                      `json:"sort_order"`
	Page          int                         `json:"page"`
	PageSize      int                         `json:"page_size"`
	TotalMatched  int                         `json:"total_matched"`
	TotalPages    int                         `json:"total_pages"`
	Items         []CategoryWithStatsResponse `json:"items"`
	Selected      []uuid.UUID                 `json:"selected"`
	Loading       bool                        `json:"loading"`
	SearchPending bool                        `json:"search_pending"`
	Generation    uint64                      `json:"generation"`
	Error         string                      `json:"error,omitempty"`
}

// ListSession is the server-side state of one category list view: filters, sort,
// page, the loaded page, the selection and a loading flag. Loads are numbered; a
// load that finishes after a newer one has started is discarded.
type ListSession struct {
	id        uuid.UUID
	backend   ListBackend
	limits    ListLimits
	debounce  time.Duration
	debouncer *scheduler.Debouncer[string]
	selection *catalog.SelectionTracker
	metrics   *telemetry.CatalogMetrics
	logger    *zap.Logger

	// ctx scopes debounced loads; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         catalog.ListState
	result        catalog.ListResult
	generation    uint64
	loading       bool
	lastErr       error
	lastAccess    time.Time
	closed        bool
	searchPending bool
	now           func() time.Time
}

func newListSession(backend ListBackend, cfg SessionConfig, metrics *telemetry.CatalogMetrics, logger *zap.Logger, now func() time.Time) *ListSession {
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	state := catalog.DefaultListState()
	state.PageSize = cfg.Limits.DefaultPageSize

	return &ListSession{
		id:         id,
		backend:    backend,
		limits:     cfg.Limits,
		debounce:   cfg.Debounce,
		debouncer:  scheduler.NewDebouncer[string](),
		selection:  catalog.NewSelectionTracker(),
		metrics:    metrics,
		logger:     logger.With(zap.String("session_id", id.String())),
		ctx:        ctx,
		cancel:     cancel,
		state:      state,
		lastAccess: now(),
		now:        now,
	}
}

// ID returns the session id
func (s *ListSession) ID() uuid.UUID {
	return s.id
}

// State returns the current list state
func (s *ListSession) State() catalog.ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh loads the page for the current state. If another Refresh starts before
// this one finishes, this one's result is dropped and Refresh returns nil.
func (s *ListSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.generation++
	gen := s.generation
	state := s.state
	s.loading = true
	s.lastAccess = s.now()
	s.mu.Unlock()

	ctx, span := telemetry.StartServiceSpan(ctx, "list_session", "refresh")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSessionID, s.id.String(),
		telemetry.SpanAttrGeneration, gen,
	)

	result, err := s.backend.QueryWithStats(ctx, state)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		s.metrics.RecordStaleResponse(ctx)
		s.logger.Debug("Discarded stale list response",
			zap.Uint64("generation", gen),
			zap.Uint64("current_generation", s.generation),
		)
		telemetry.AddEvent(span, "stale_response_discarded")
		return nil
	}

	s.loading = false
	if err != nil {
		s.lastErr = err
		telemetry.RecordError(span, err)
		return err
	}
	s.result = result
	s.lastErr = nil
	telemetry.SetAttribute(span, telemetry.SpanAttrResultCount, len(result.Items))
	telemetry.SetOK(span)
	return nil
}

// SetSearch records a keystroke. The search is applied, and the first page loaded,
// once no further SetSearch has arrived for the debounce delay.
func (s *ListSession) SetSearch(term string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.lastAccess = s.now()
	s.searchPending = true
	s.mu.Unlock()

	if s.debouncer.Pending() {
		s.metrics.RecordDebounced(s.ctx)
	}
	s.debouncer.Schedule(term, s.debounce, func(term string) {
		ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
		defer cancel()
		if err := s.applySearch(ctx, term); err != nil && !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn("Debounced search failed", zap.String("search_term", term), zap.Error(err))
		}
	})
	return nil
}

// ApplySearch applies a search term immediately, dropping any pending debounced one
func (s *ListSession) ApplySearch(ctx context.Context, term string) error {
	s.debouncer.Cancel()
	return s.applySearch(ctx, term)
}

func (s *ListSession) applySearch(ctx context.Context, term string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.searchPending = false
	s.state.SearchTerm = term
	s.state.Page = 1
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Update applies a filter, sort or page change and reloads. Changing a filter or the
// sort returns to the first page unless the patch names a page.
func (s *ListSession) Update(ctx context.Context, patch ListPatch) error {
	next, err := s.patchedState(patch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = next
	s.mu.Unlock()

	return s.Refresh(ctx)
}

func (s *ListSession) patchedState(patch ListPatch) (catalog.ListState, error) {
	state := s.State()
	var details []shared.FieldError
	changed := false

	if patch.Status != nil {
		v, err := catalog.ParseStatusFilter(*patch.Status)
		details = appendFieldErrors(details, err)
		changed = changed || v != state.Status
		state.Status = v
	}
	if patch.Parent != nil {
		v, err := catalog.ParseParentFilter(*patch.Parent)
		details = appendFieldErrors(details, err)
		changed = changed || v != state.Parent
		state.Parent = v
	}
	if patch.SortBy != nil {
		v, err := catalog.ParseSortField(*patch.SortBy)
		details = appendFieldErrors(details, err)
		changed = changed || v != state.SortBy
		state.SortBy = v
	}
	if patch.SortOrder != nil {
		v, err := catalog.ParseSortDirection(*patch.SortOrder)
		details = appendFieldErrors(details, err)
		changed = changed || v != state.SortOrder
		state.SortOrder = v
	}
	if len(details) > 0 {
		return catalog.ListState{}, shared.NewValidationError(details...)
	}

	page, pageSize := state.Page, state.PageSize
	if patch.PageSize != nil {
		pageSize = *patch.PageSize
		changed = changed || pageSize != state.PageSize
	}
	switch {
	case patch.Page != nil:
		page = *patch.Page
	case changed:
		page = 1
	}
	state.Page, state.PageSize = s.limits.Normalize(page, pageSize)
	return state, nil
}

// Toggle flips the selection of one category and reports whether it is now selected
func (s *ListSession) Toggle(id uuid.UUID) bool {
	s.touch()
	return s.selection.Toggle(id)
}

// SelectAll adds ids to the selection; with no ids it adds every category on the current page
func (s *ListSession) SelectAll(ids []uuid.UUID) {
	s.touch()
	if len(ids) == 0 {
		s.mu.Lock()
		for i := range s.result.Items {
			ids = append(ids, s.result.Items[i].ID)
		}
		s.mu.Unlock()
	}
	s.selection.SelectAll(ids)
}

// ClearSelection empties the selection
func (s *ListSession) ClearSelection() {
	s.touch()
	s.selection.Clear()
}

// IsSelected reports whether a category is selected
func (s *ListSession) IsSelected(id uuid.UUID) bool {
	return s.selection.IsSelected(id)
}

// BulkDeleteSelected deletes every selected category, all or nothing. On success the
// deleted ids leave the selection and the page is reloaded; on failure the selection is kept.
func (s *ListSession) BulkDeleteSelected(ctx context.Context) error {
	s.touch()
	ids := s.selection.Selected()
	if err := s.backend.BulkDelete(ctx, ids); err != nil {
		return err
	}
	s.selection.Remove(ids)
	return s.Refresh(ctx)
}

// View returns a snapshot of the session
func (s *ListSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		ID:            s.id,
		SearchTerm:    s.state.SearchTerm,
		Status:        string(s.state.Status),
		Parent:        string(s.state.Parent),
		SortBy:        string(s.state.SortBy),
		SortOrder:     string(s.state.SortOrder),
		Page:          s.state.Page,
		PageSize:      s.state.PageSize,
		TotalMatched:  s.result.TotalMatched,
		TotalPages:    s.result.TotalPages,
		Items:         ToCategoryWithStatsResponses(s.result.Items),
		Selected:      s.selection.Selected(),
		Loading:       s.loading,
		SearchPending: s.searchPending,
		Generation:    s.generation,
	}
	if s.lastErr != nil {
		view.Error = s.lastErr.Error()
	}
	return view
}

// Loading reports whether a load for the current state is outstanding
func (s *ListSession) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Close cancels any pending debounced search and in-flight debounced load
func (s *ListSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.loading = false
	s.searchPending = false
	s.mu.Unlock()

	s.debouncer.Close()
	s.cancel()
}

func (s *ListSession) touch() {
	s.mu.Lock()
	s.lastAccess = s.now()
	s.mu.Unlock()
}

func (s *ListSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// SessionConfig configures the list sessions opened by a SessionManager
type SessionConfig struct {
	Debounce time.Duration
	TTL      time.Duration
	Limits   ListLimits
}

// SessionManager owns the open list sessions
type SessionManager struct {
	backend ListBackend
	cfg     SessionConfig
	metrics *telemetry.CatalogMetrics
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*ListSession
}

// NewSessionManager creates a SessionManager. metrics may be nil.
func NewSessionManager(backend ListBackend, cfg SessionConfig, metrics *telemetry.CatalogMetrics, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limits.DefaultPageSize <= 0 {
		cfg.Limits = DefaultListLimits()
	}
	return &SessionManager{
		backend:  backend,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.Named("list_session"),
		now:      time.Now,
		sessions: make(map[uuid.UUID]*ListSession),
	}
}

// Open creates a session with the default list state and loads its first page
func (m *SessionManager) Open(ctx context.Context) (*ListSession, error) {
	session := newListSession(m.backend, m.cfg, m.metrics, m.logger, m.now)
	if err := session.Refresh(ctx); err != nil {
		session.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	m.logger.Debug("List session opened", zap.String("session_id", session.id.String()))
	return session, nil
}

// Get returns an open session
func (m *SessionManager) Get(id uuid.UUID) (*ListSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, shared.NewNotFoundError("list session", id)
	}
	session.touch()
	return session, nil
}

// Close closes and forgets a session
func (m *SessionManager) Close(id uuid.UUID) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return shared.NewNotFoundError("list session", id)
	}
	session.Close()
	return nil
}

// SweepIdle closes sessions that have been idle for longer than the configured TTL
func (m *SessionManager) SweepIdle(ctx context.Context) error {
	if m.cfg.TTL <= 0 {
		return nil
	}
	cutoff := m.now().Add(-m.cfg.TTL)

	m.mu.Lock()
	var expired []*ListSession
	for id, session := range m.sessions {
		if session.idleSince().Before(cutoff) {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	if len(expired) > 0 {
		m.logger.Info("Closed idle list sessions", zap.Int("count", len(expired)))
	}
	return ctx.Err()
}

// CloseAll closes every session
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*ListSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// Count returns the number of open sessions
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
