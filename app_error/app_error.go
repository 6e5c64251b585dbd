package app_error

import (
	"errors"

	"github.com/gin-gonic/gin"
)

type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindBusinessRule Kind = "BUSINESS_RULE_VIOLATION"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindStructural   Kind = "STRUCTURAL_ERROR"
)

// Error is the only error type core operations return to callers.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return 404
	case KindBusinessRule:
		return 409
	case KindValidation:
		return 400
	case KindStructural:
		return 500
	}
	return 500
}

// NotFound deliberately carries no detail about whether the entity exists
// for another owner.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func BusinessRule(message string, details map[string]any) *Error {
	return &Error{Kind: KindBusinessRule, Message: message, Details: details}
}

func Validation(message string, details map[string]any) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func Structural(message string, details map[string]any) *Error {
	return &Error{Kind: KindStructural, Message: message, Details: details}
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Render writes the error to the response, mapping unknown errors to 500.
func Render(c *gin.Context, err error) {
	var appErr *Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}
	c.JSON(500, gin.H{"error": err.Error()})
}
