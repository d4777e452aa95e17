package validator

import (
	"log"

	"github.com/goccy/go-json"
)

// ValidationError - Errors for tags validation.
type ValidationError struct {
	errors []*ValidationErrorResponse
}

// ValidationErrorResponse - Struct for the validation error.
type ValidationErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

// NewValidationError - ValidationError constructor.
func NewValidationError(errors []*ValidationErrorResponse) *ValidationError {
	return &ValidationError{errors: errors}
}

func (v *ValidationError) Error() string {
	data, err := json.Marshal(v.errors)
	if err != nil {
		// Plain stdlib log: validator sits below logx in the package graph.
		log.Printf("Error marshalling -Validation Error- to JSON: %v", err)
		return ""
	}

	return string(data)
}

// GetErrorsDetails - return the errors.
func (v *ValidationError) GetErrorsDetails() []*ValidationErrorResponse {
	return v.errors
}
