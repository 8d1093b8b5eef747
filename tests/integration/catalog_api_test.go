package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/homeservices/backend/internal/application/catalog"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/infrastructure/cache"
	"github.com/homeservices/backend/internal/infrastructure/config"
	"github.com/homeservices/backend/internal/infrastructure/event"
	"github.com/homeservices/backend/internal/infrastructure/persistence"
	"github.com/homeservices/backend/internal/interfaces/http/handler"
	"github.com/homeservices/backend/internal/interfaces/http/middleware"
	"github.com/homeservices/backend/internal/interfaces/http/router"
	"github.com/homeservices/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type catalogServer struct {
	engine *gin.Engine
	events *testutil.EventRecorder
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()

	testDB := NewTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	categories := persistence.NewGormCategoryRepository(testDB.DB)
	products := persistence.NewGormProductRepository(testDB.DB)
	require.NoError(t, persistence.SeedDemoData(ctx, categories, products, time.Now()))

	statsCache := cache.NewInMemoryStatsCache()
	bus := event.NewInMemoryEventBus(zap.NewNop())
	recorder := testutil.NewEventRecorder()
	bus.Subscribe(recorder)
	bus.Subscribe(catalogapp.NewStatsCacheInvalidator(statsCache, zap.NewNop()), catalog.CategoryEventTypes...)
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	service := catalogapp.NewCategoryService(categories, products,
		catalogapp.WithEventPublisher(bus),
		catalogapp.WithStatsCache(statsCache, time.Minute),
	)
	sessions := catalogapp.NewSessionManager(service, catalogapp.SessionConfig{Debounce: 20 * time.Millisecond}, nil, nil)
	t.Cleanup(sessions.CloseAll)

	engine, err := router.NewEngine(router.EngineOptions{
		HTTP:    config.HTTPConfig{MaxBodySize: 1 << 20},
		Tracing: middleware.TracingConfig{Enabled: false},
		Meter:   sdkmetric.NewMeterProvider().Meter("integration"),
		Health:  handler.NewSystemHandler(config.DataSourceDatabase, &persistence.Database{DB: testDB.DB, Driver: config.DriverPostgres}).Health,
	})
	require.NoError(t, err)
	router.NewRouter(engine).
		Register(router.NewCatalogRoutes(handler.NewCategoryHandler(service), handler.NewListSessionHandler(sessions))).
		Setup()

	return &catalogServer{engine: engine, events: recorder}
}

func (s *catalogServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Do(t, s.engine, method, "/api/v1/catalog"+path, body)
}

func (s *catalogServer) findByName(t *testing.T, name string) catalogapp.CategoryResponse {
	t.Helper()
	w := s.do(t, http.MethodGet, "/categories?search="+name+"&page_size=100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range testutil.DataAs[[]catalogapp.CategoryResponse](t, w) {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found", name)
	return catalogapp.CategoryResponse{}
}

func TestCatalogAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newCatalogServer(t)

	t.Run("Health reports the database", func(t *testing.T) {
		w := testutil.Do(t, s.engine, http.MethodGet, "/health", nil)
		health := testutil.DataAs[handler.HealthResponse](t, w)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, config.DataSourceDatabase, health.DataSource)
	})

	var before catalog.DashboardStats
	t.Run("Dashboard counts the seeded catalog", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/categories/dashboard", nil)
		before = testutil.DataAs[catalog.DashboardStats](t, w)
		assert.Positive(t, before.Total)
		assert.Equal(t, before.Total, before.Active+before.Inactive)
		assert.LessOrEqual(t, before.TopLevel, before.Total)
	})

	var created catalogapp.CategoryResponse
	t.Run("Create a subcategory", func(t *testing.T) {
		parent := s.findByName(t, "Cleaning")
		w := s.do(t, http.MethodPost, "/categories", map[string]any{
			"name":      "Window Washing",
			"parent_id": parent.ID,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		created = testutil.DataAs[catalogapp.CategoryResponse](t, w)
		require.NotNil(t, created.ParentID)
		assert.Equal(t, parent.ID, *created.ParentID)

		testutil.WaitForEventCount(t, s.events, 1, time.Second)
		assert.Contains(t, s.events.Types(), catalog.EventTypeCategoryCreated)
	})

	t.Run("Dashboard sees the new category after invalidation", func(t *testing.T) {
		require.Eventually(t, func() bool {
			w := s.do(t, http.MethodGet, "/categories/dashboard", nil)
			return testutil.DataAs[catalog.DashboardStats](t, w).Total == before.Total+1
		}, time.Second, 20*time.Millisecond)
	})

	t.Run("Flat tree places the child under its parent", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/categories/tree/flat", nil)
		items := testutil.DataAs[[]catalogapp.FlatCategoryItem](t, w)

		parentLevel, found := -1, false
		for _, item := range items {
			if item.ID == *created.ParentID {
				parentLevel = item.Level
			}
			if item.ID == created.ID {
				found = true
				assert.Equal(t, parentLevel+1, item.Level)
			}
		}
		assert.True(t, found)
	})

	t.Run("Unknown parent is rejected", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/categories", map[string]any{
			"name":      "Orphan",
			"parent_id": uuid.New(),
		})
		testutil.AssertErrorResponse(t, w, http.StatusBadRequest, catalogapp.CodeInvalidParent)
	})

	t.Run("Moving under a descendant is a cycle", func(t *testing.T) {
		w := s.do(t, http.MethodPost, fmt.Sprintf("/categories/%s/move", *created.ParentID), map[string]any{
			"parent_id": created.ID,
		})
		testutil.AssertErrorResponse(t, w, http.StatusConflict, catalogapp.CodeCircularReference)
	})

	t.Run("Parent with children cannot be deleted", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, fmt.Sprintf("/categories/%s", *created.ParentID), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Deactivate and reactivate", func(t *testing.T) {
		w := s.do(t, http.MethodPost, fmt.Sprintf("/categories/%s/deactivate", created.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, string(catalog.CategoryStatusInactive), testutil.DataAs[catalogapp.CategoryResponse](t, w).Status)

		w = s.do(t, http.MethodPost, fmt.Sprintf("/categories/%s/activate", created.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, string(catalog.CategoryStatusActive), testutil.DataAs[catalogapp.CategoryResponse](t, w).Status)
	})

	t.Run("Leaf without products can be deleted", func(t *testing.T) {
		w := s.do(t, http.MethodGet, fmt.Sprintf("/categories/%s/can-delete", created.ID), nil)
		check := testutil.DataAs[catalogapp.DeleteCheck](t, w)
		assert.True(t, check.CanDelete)

		w = s.do(t, http.MethodDelete, fmt.Sprintf("/categories/%s", created.ID), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = s.do(t, http.MethodGet, fmt.Sprintf("/categories/%s", created.ID), nil)
		testutil.AssertErrorResponse(t, w, http.StatusNotFound, "NOT_FOUND")
	})
}

func TestListSession_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newCatalogServer(t)

	w := s.do(t, http.MethodPost, "/list-sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := testutil.DataAs[catalogapp.SessionView](t, w)
	require.NotEmpty(t, view.Items)
	base := fmt.Sprintf("/list-sessions/%s", view.ID)

	w = s.do(t, http.MethodPatch, base, map[string]any{"search": "cleaning", "immediate": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = testutil.DataAs[catalogapp.SessionView](t, w)
	require.NotEmpty(t, view.Items)
	for _, item := range view.Items {
		assert.Contains(t, strings.ToLower(item.Name+" "+item.Description), "cleaning")
	}

	w = s.do(t, http.MethodPost, base+"/selection/select-all", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = testutil.DataAs[catalogapp.SessionView](t, w)
	assert.Len(t, view.Selected, len(view.Items))

	// the seeded cleaning categories own products, so the batch is refused as a whole
	w = s.do(t, http.MethodPost, base+"/bulk-delete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, base, nil)
	view = testutil.DataAs[catalogapp.SessionView](t, w)
	assert.NotEmpty(t, view.Selected)

	w = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
