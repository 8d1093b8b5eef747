package handler

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homeservices/backend/internal/interfaces/http/dto"
)

// healthCheckTimeout bounds the dependency ping of one health request
const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is part of the health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// poolReporter is implemented by Pingers that can describe their connection pool
type poolReporter interface {
	Stats() (sql.DBStats, error)
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	dataSource string
	db         Pinger
	startTime  time.Time
}

// NewSystemHandler creates a SystemHandler. db is nil when the service runs on mock data.
func NewSystemHandler(dataSource string, db Pinger) *SystemHandler {
	return &SystemHandler{
		dataSource: dataSource,
		db:         db,
		startTime:  time.Now(),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status     string `json:"status"`
	DataSource string `json:"data_source"`
	Database   string `json:"database"`
	OpenConns  int    `json:"open_connections,omitempty"`
	GoVersion  string `json:"go_version"`
	Uptime     string `json:"uptime"`
}

// Health reports liveness and database reachability
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:     "ok",
		DataSource: h.dataSource,
		Database:   "not configured",
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.db == nil {
		h.Success(c, resp)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp, Error: &dto.ErrorInfo{
			Code:      dto.ErrCodeServiceUnavailable,
			Message:   "Database is unreachable",
			RequestID: getRequestID(c),
		}})
		return
	}
	resp.Database = "ok"
	if pr, ok := h.db.(poolReporter); ok {
		if stats, err := pr.Stats(); err == nil {
			resp.OpenConns = stats.OpenConnections
		}
	}
	h.Success(c, resp)
}
