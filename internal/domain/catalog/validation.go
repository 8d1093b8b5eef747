package catalog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/homeservices/backend/internal/domain/shared"
)

// Field limits for category input
const (
	NameMinLength        = 2
	NameMaxLength        = 100
	DescriptionMaxLength = 500
)

// ValidateCategoryFields checks name and description, reporting every failing field at once
func ValidateCategoryFields(name, description string) error {
	var details []shared.FieldError

	name = normalizeText(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		details = append(details, shared.FieldError{Field: "name", Message: "name is required"})
	case n < NameMinLength || n > NameMaxLength:
		details = append(details, shared.FieldError{
			Field:   "name",
			Message: fmt.Sprintf("name must be between %d and %d characters", NameMinLength, NameMaxLength),
		})
	}

	if utf8.RuneCountInString(normalizeText(description)) > DescriptionMaxLength {
		details = append(details, shared.FieldError{
			Field:   "description",
			Message: fmt.Sprintf("description cannot exceed %d characters", DescriptionMaxLength),
		})
	}

	if len(details) > 0 {
		return shared.NewValidationError(details...)
	}
	return nil
}

func normalizeText(s string) string {
	return strings.TrimSpace(s)
}
