package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/homeservices/backend/internal/application/catalog"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/infrastructure/persistence"
	"github.com/homeservices/backend/internal/interfaces/http/dto"
	"github.com/homeservices/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testEnv serves the category and list-session handlers over an in-memory store holding:
//
//	Cleaning      products: 1
//	  Carpet Care
//	Plumbing
type testEnv struct {
	router   *gin.Engine
	store    *persistence.MemoryStore
	sessions *catalogapp.SessionManager

	cleaning, carpet, plumbing *catalog.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := persistence.NewMemoryStore(0)
	env := &testEnv{store: store}

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	env.cleaning = saveCategory(t, store, "Cleaning", nil, 0, base)
	env.carpet = saveCategory(t, store, "Carpet Care", &env.cleaning.ID, 0, base.Add(time.Hour))
	env.plumbing = saveCategory(t, store, "Plumbing", nil, 1, base.Add(2*time.Hour))

	product, err := catalog.NewProduct("Standard Clean", &env.cleaning.ID)
	require.NoError(t, err)
	require.NoError(t, store.Products().Save(ctx, product))

	service := catalogapp.NewCategoryService(store.Categories(), store.Products(), catalogapp.WithDataSource("mock"))
	env.sessions = catalogapp.NewSessionManager(service, catalogapp.SessionConfig{Debounce: 50 * time.Millisecond}, nil, nil)
	t.Cleanup(env.sessions.CloseAll)

	categories := NewCategoryHandler(service)
	lists := NewListSessionHandler(env.sessions)

	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1/catalog")
	api.GET("/categories", categories.List)
	api.POST("/categories", categories.Create)
	api.GET("/categories/stats", categories.ListWithStats)
	api.GET("/categories/dashboard", categories.Dashboard)
	api.GET("/categories/tree", categories.GetTree)
	api.GET("/categories/tree/flat", categories.GetFlatTree)
	api.POST("/categories/bulk-delete", categories.BulkDelete)
	api.GET("/categories/:id", categories.GetByID)
	api.PUT("/categories/:id", categories.Update)
	api.DELETE("/categories/:id", categories.Delete)
	api.GET("/categories/:id/subcategories", categories.GetChildren)
	api.GET("/categories/:id/can-delete", categories.CanDelete)
	api.POST("/categories/:id/move", categories.Move)
	api.POST("/categories/:id/activate", categories.Activate)
	api.POST("/categories/:id/deactivate", categories.Deactivate)

	api.POST("/list-sessions", lists.Open)
	api.GET("/list-sessions/:id", lists.Get)
	api.PATCH("/list-sessions/:id", lists.Update)
	api.DELETE("/list-sessions/:id", lists.Close)
	api.POST("/list-sessions/:id/selection/toggle", lists.Toggle)
	api.POST("/list-sessions/:id/selection/select-all", lists.SelectAll)
	api.POST("/list-sessions/:id/selection/clear", lists.ClearSelection)
	api.POST("/list-sessions/:id/bulk-delete", lists.BulkDelete)
	env.router = router
	return env
}

func saveCategory(t *testing.T, store *persistence.MemoryStore, name string, parentID *uuid.UUID, sortOrder int, createdAt time.Time) *catalog.Category {
	t.Helper()
	c, err := catalog.NewCategory(name, name+" services", parentID, sortOrder)
	require.NoError(t, err)
	c.CreatedAt = createdAt
	c.UpdatedAt = createdAt
	c.ClearDomainEvents()
	require.NoError(t, store.Categories().Save(context.Background(), c))
	return c
}

// do sends a request with an optional JSON body
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response envelope, decoding data into out when given
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Response
}
