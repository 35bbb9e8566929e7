// internal/common/utils/validator.go
// Input validation using struct tags

package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
)

// Global validator instance
var validate = validator.New()

// ValidateStruct validates a struct based on its tags and reports
// failures as a single bad-request error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var messages []string
	for _, fe := range err.(validator.ValidationErrors) {
		messages = append(messages, formatFieldError(fe))
	}
	return apperrors.BadRequest("validation_failed", strings.Join(messages, ", "))
}

// formatFieldError converts validator errors to human-readable messages
func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s long", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
