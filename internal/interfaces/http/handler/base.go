package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/logger"
	"github.com/homeservices/backend/internal/interfaces/http/dto"
	"github.com/homeservices/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler writes the dto envelope for the catalog handlers
type BaseHandler struct{}

// getRequestID prefers the id the RequestID middleware stored over the raw header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Paged(data, total, page, pageSize))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *BaseHandler) fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.Fail(code, message, getRequestID(c)))
}

// HandleError writes err as an error body. Domain errors keep their code and field
// details; anything else is logged and hidden behind INTERNAL_ERROR.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}

	status := dto.StatusForError(err)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed", zap.String("code", domainErr.Code), zap.Error(err))
	}
	c.JSON(status, dto.FailDomain(domainErr, getRequestID(c)))
}

// bindJSON reports false after writing a 400 for an unreadable or invalid body
func (h *BaseHandler) bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindQuery(c *gin.Context, obj any) bool {
	err := c.ShouldBindQuery(obj)
	if err == nil {
		return true
	}
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		middleware.HandleValidationError(c, err)
	} else {
		h.fail(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid query parameters")
	}
	return false
}

// parseID reads the :id path parameter
func (h *BaseHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, dto.ErrCodeInvalidID, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}
