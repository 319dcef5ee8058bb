// Package services implements the backend business rules behind the workflow builder API.
package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Client errors, answered with 400.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidStatus        = errors.New("invalid workflow status")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrProjectRequired      = errors.New("project ID is required")
	ErrNodesRequired        = errors.New("workflow must have at least one node")
)

// State conflicts, answered with 409.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotExecutable     = errors.New("workflow cannot be executed in its current status")
	ErrWorkflowArchived  = errors.New("archived workflows cannot be modified")
)

// Codes carried by ServiceError.
const (
	CodeNameRequired      = "NAME_REQUIRED"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotExecutable     = "NOT_EXECUTABLE"
	CodeArchived          = "ARCHIVED"
)

var (
	validationErrors = []error{
		ErrInvalidRequest,
		ErrInvalidStatus,
		ErrWorkflowNameRequired,
		ErrProjectRequired,
		ErrNodesRequired,
	}
	conflictErrors = []error{
		ErrInvalidTransition,
		ErrNotExecutable,
		ErrWorkflowArchived,
	}
)

// ServiceError is a rule violation with the operation that raised it and a stable code.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// IsValidationError reports whether err is a client error.
func IsValidationError(err error) bool {
	return matchesAny(err, validationErrors)
}

// IsConflictError reports whether err rejects a request because of the workflow's current state.
func IsConflictError(err error) bool {
	return matchesAny(err, conflictErrors)
}

// ErrorCode returns the lower-cased code of the first ServiceError in err's chain, or "".
func ErrorCode(err error) string {
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		return ""
	}

	return strings.ToLower(serviceErr.Code)
}

func matchesAny(err error, targets []error) bool {
	return slices.ContainsFunc(targets, func(target error) bool {
		return errors.Is(err, target)
	})
}
