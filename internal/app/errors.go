package app

import (
	"fmt"
	"net/http"
)

// DomainError is an error with a fixed HTTP status and a machine-readable code
// that writeError serializes as {"code","error","details"}.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

func unavailableError(code, feature string) *DomainError {
	return domainError(http.StatusServiceUnavailable, code, feature+" is not configured", nil)
}
