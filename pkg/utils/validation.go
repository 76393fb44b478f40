// Package utils carries request validation helpers for the local HTTP
// surface.
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"flowsync/pkg/errors"
)

var validate = validator.New()

// ValidateStruct checks a struct's validation tags and maps failures
// onto the error taxonomy, one message per failing field, so handlers
// can hand the result straight to the error handler.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError(err.Error())
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return errors.NewValidationError(strings.Join(problems, "; ")).WithCode("INVALID_INPUT")
}

func describeFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " is below the minimum of " + e.Param()
	case "max":
		return field + " exceeds the maximum of " + e.Param()
	case "oneof":
		return field + " must be one of: " + e.Param()
	default:
		return field + " is invalid"
	}
}
