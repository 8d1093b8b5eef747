package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/homeservices/backend/internal/application/catalog"
)

// ListSessionHandler exposes server-side category list sessions: search with
// debounce, filters, sort, paging and multi-select
type ListSessionHandler struct {
	BaseHandler
	sessions *catalogapp.SessionManager
}

// NewListSessionHandler creates a new ListSessionHandler
func NewListSessionHandler(sessions *catalogapp.SessionManager) *ListSessionHandler {
	return &ListSessionHandler{sessions: sessions}
}

// UpdateListSessionRequest changes a session. Search is debounced unless Immediate is set.
type UpdateListSessionRequest struct {
	catalogapp.ListPatch
	Search    *string `json:"search" binding:"omitempty,max=100"`
	Immediate bool    `json:"immediate"`
}

func (r UpdateListSessionRequest) hasPatch() bool {
	p := r.ListPatch
	return p.Status != nil || p.Parent != nil || p.SortBy != nil || p.SortOrder != nil ||
		p.Page != nil || p.PageSize != nil
}

// ToggleSelectionRequest flips one category in the selection
type ToggleSelectionRequest struct {
	ID uuid.UUID `json:"id" binding:"required"`
}

// SelectAllRequest selects the given ids, or the current page when empty
type SelectAllRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// Open opens a session on the first page with default filters
// POST /catalog/list-sessions
func (h *ListSessionHandler) Open(c *gin.Context) {
	session, err := h.sessions.Open(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session.View())
}

// session resolves the :id path parameter, writing the error response when it fails
func (h *ListSessionHandler) session(c *gin.Context) (*catalogapp.ListSession, bool) {
	id, ok := h.parseID(c)
	if !ok {
		return nil, false
	}
	session, err := h.sessions.Get(id)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return session, true
}

// Get returns the current page, selection and loading flag
// GET /catalog/list-sessions/:id
func (h *ListSessionHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.Success(c, session.View())
}

// Update changes search, filters, sort or page
// PATCH /catalog/list-sessions/:id
func (h *ListSessionHandler) Update(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req UpdateListSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if req.hasPatch() {
		if err := session.Update(ctx, req.ListPatch); err != nil {
			h.HandleError(c, err)
			return
		}
	}
	if req.Search != nil {
		var err error
		if req.Immediate {
			err = session.ApplySearch(ctx, *req.Search)
		} else {
			err = session.SetSearch(*req.Search)
		}
		if err != nil {
			h.HandleError(c, err)
			return
		}
	}
	h.Success(c, session.View())
}

// Toggle flips the selection of one category
// POST /catalog/list-sessions/:id/selection/toggle
func (h *ListSessionHandler) Toggle(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req ToggleSelectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	session.Toggle(req.ID)
	h.Success(c, session.View())
}

// SelectAll selects the given categories or the whole current page
// POST /catalog/list-sessions/:id/selection/select-all
func (h *ListSessionHandler) SelectAll(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectAllRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	session.SelectAll(req.IDs)
	h.Success(c, session.View())
}

// ClearSelection empties the selection
// POST /catalog/list-sessions/:id/selection/clear
func (h *ListSessionHandler) ClearSelection(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.ClearSelection()
	h.Success(c, session.View())
}

// BulkDelete deletes every selected category
// POST /catalog/list-sessions/:id/bulk-delete
func (h *ListSessionHandler) BulkDelete(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.BulkDeleteSelected(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session.View())
}

// Close closes a session and drops any pending search
// DELETE /catalog/list-sessions/:id
func (h *ListSessionHandler) Close(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
