package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/homeservices/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type pooledDB struct {
	pingFunc
	open int
}

func (p pooledDB) Stats() (sql.DBStats, error) {
	return sql.DBStats{OpenConnections: p.open}, nil
}

func serveHealth(t *testing.T, h *SystemHandler) (*httptest.ResponseRecorder, HealthResponse, dto.Response) {
	t.Helper()
	router := gin.New()
	router.GET("/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var health HealthResponse
	resp := decode(t, w, &health)
	return w, health, resp
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("mock data source has no database", func(t *testing.T) {
		w, health, _ := serveHealth(t, NewSystemHandler("mock", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, "mock", health.DataSource)
		assert.Equal(t, "not configured", health.Database)
		assert.NotEmpty(t, health.GoVersion)
	})

	t.Run("database reachable", func(t *testing.T) {
		db := pingFunc(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "ping should be bounded")
			return nil
		})
		w, health, _ := serveHealth(t, NewSystemHandler("database", db))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", health.Database)
		assert.Zero(t, health.OpenConns)
	})

	t.Run("pool size reported when available", func(t *testing.T) {
		db := pooledDB{pingFunc: func(context.Context) error { return nil }, open: 3}
		_, health, _ := serveHealth(t, NewSystemHandler("database", db))
		assert.Equal(t, 3, health.OpenConns)
	})

	t.Run("database unreachable", func(t *testing.T) {
		db := pingFunc(func(context.Context) error { return errors.New("connection refused") })
		w, health, resp := serveHealth(t, NewSystemHandler("database", db))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "unreachable", health.Database)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeServiceUnavailable, resp.Error.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
