package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/homeservices/backend/internal/interfaces/http/dto"
)

// SetupValidator makes gin's validator name fields by their json tag, or form tag for query structs
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// HandleValidationError aborts with 400. Validator failures list each field;
// anything else (malformed JSON, wrong types) is reported as unparseable.
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, validationResponse(err, c.GetString(RequestIDKey)))
}

func validationResponse(err error, requestID string) dto.Response {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return dto.Fail(dto.ErrCodeInvalidJSON, "Request body could not be parsed", requestID)
	}
	details := make([]dto.ValidationDetail, len(fields))
	for i, fe := range fields {
		details[i] = dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)}
	}
	return dto.FailValidation("Request validation failed", requestID, details)
}

var tagMessages = map[string]string{
	"required": "This field is required",
	"uuid":     "Invalid UUID format",
	"uuid4":    "Invalid UUID format",
	"oneof":    "Must be one of: ",
	"gte":      "Must be greater than or equal to ",
	"lte":      "Must be less than or equal to ",
	"min":      "Must be at least ",
	"max":      "Must be at most ",
	"dive":     "Contains an invalid element",
}

// describe renders a field error as a sentence; min and max name their unit for strings and lists
func describe(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return "Invalid value"
	}
	if !strings.HasSuffix(msg, " ") {
		return msg
	}
	msg += fe.Param()
	if fe.Tag() == "min" || fe.Tag() == "max" {
		switch fe.Kind() {
		case reflect.String:
			msg += " characters"
		case reflect.Slice, reflect.Array:
			msg += " items"
		}
	}
	return msg
}
