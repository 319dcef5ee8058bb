package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrProjectNotFound indicates a project was not found by the given identifier.
	ErrProjectNotFound = errors.New("project not found")

	// ErrThreadNotFound indicates a thread was not found by the given identifier.
	ErrThreadNotFound = errors.New("thread not found")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// EntityError wraps project and thread errors.
type EntityError struct {
	Op     string
	Entity string // "project" or "thread"
	ID     string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewProjectError(op, projectID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "project", ID: projectID, Err: err}
}

func NewThreadError(op, threadID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "thread", ID: threadID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsProjectNotFound checks if an error indicates a project was not found.
func IsProjectNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}

// IsThreadNotFound checks if an error indicates a thread was not found.
func IsThreadNotFound(err error) bool {
	return errors.Is(err, ErrThreadNotFound)
}
