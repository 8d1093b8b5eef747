package router

import (
	"net/http"

	"github.com/homeservices/backend/internal/interfaces/http/handler"
)

// NewCatalogRoutes wires the category and list-session endpoints under /catalog.
// Static segments such as /tree and /bulk-delete sit beside /:id.
func NewCatalogRoutes(categories *handler.CategoryHandler, lists *handler.ListSessionHandler) *RouteGroup {
	return &RouteGroup{
		Prefix: "/catalog",
		Groups: []*RouteGroup{
			{
				Prefix: "/categories",
				Routes: []Route{
					{http.MethodGet, "", categories.List},
					{http.MethodPost, "", categories.Create},
					{http.MethodGet, "/stats", categories.ListWithStats},
					{http.MethodGet, "/dashboard", categories.Dashboard},
					{http.MethodGet, "/tree", categories.GetTree},
					{http.MethodGet, "/tree/flat", categories.GetFlatTree},
					{http.MethodPost, "/bulk-delete", categories.BulkDelete},
					{http.MethodGet, "/:id", categories.GetByID},
					{http.MethodPut, "/:id", categories.Update},
					{http.MethodDelete, "/:id", categories.Delete},
					{http.MethodGet, "/:id/subcategories", categories.GetChildren},
					{http.MethodGet, "/:id/can-delete", categories.CanDelete},
					{http.MethodPost, "/:id/move", categories.Move},
					{http.MethodPost, "/:id/activate", categories.Activate},
					{http.MethodPost, "/:id/deactivate", categories.Deactivate},
				},
			},
			{
				Prefix: "/list-sessions",
				Routes: []Route{
					{http.MethodPost, "", lists.Open},
					{http.MethodGet, "/:id", lists.Get},
					{http.MethodPatch, "/:id", lists.Update},
					{http.MethodDelete, "/:id", lists.Close},
					{http.MethodPost, "/:id/selection/toggle", lists.Toggle},
					{http.MethodPost, "/:id/selection/select-all", lists.SelectAll},
					{http.MethodPost, "/:id/selection/clear", lists.ClearSelection},
					{http.MethodPost, "/:id/bulk-delete", lists.BulkDelete},
				},
			},
		},
	}
}
