package persistence

import (
	"context"
	"errors"

	"github.com/homeservices/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps driver errors onto the domain taxonomy: a missing row becomes
// NotFound, a cancelled caller keeps its context error, everything else is a
// NetworkError wrapping the cause.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return shared.NewNetworkError(op, err)
	}
}

func notFound(id any) error {
	return shared.NewNotFoundError("category", id)
}
