package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the certification core.

// ErrNotFound indicates a referenced entity does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotFound builds an ErrNotFound from a numeric id.
func NotFound(resource string, id int64) *ErrNotFound {
	return &ErrNotFound{Resource: resource, ID: fmt.Sprintf("%d", id)}
}

// ErrValidation indicates a validation error (bad input). Always raised before any write.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrStateGuard indicates a lifecycle transition rejected by business rules:
// wrong prior status, already finalized, missing prerequisite step.
type ErrStateGuard struct {
	Operation string
	Reason    string
}

func (e *ErrStateGuard) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Operation, e.Reason)
}

// ErrForbidden indicates the caller's role may not perform the operation.
// It unwraps to an ErrStateGuard so callers matching on guard violations see it too.
type ErrForbidden struct {
	Action string
	Role   Role
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: role '%s' cannot %s", e.Role, e.Action)
}

func (e *ErrForbidden) Unwrap() error {
	return &ErrStateGuard{Operation: e.Action, Reason: fmt.Sprintf("role '%s' not allowed", e.Role)}
}

// ErrTransient indicates infrastructure faults that persisted after every retry.
type ErrTransient struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ErrTransient) Error() string {
	return fmt.Sprintf("transient failure in %s after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ErrTransient) Unwrap() error {
	return e.Err
}

// ErrDataInconsistency indicates reference data that would corrupt a
// certification outcome if defaulted (unknown badge name, non-numeric ordering).
type ErrDataInconsistency struct {
	Entity string
	Detail string
}

func (e *ErrDataInconsistency) Error() string {
	return fmt.Sprintf("data inconsistency [%s]: %s", e.Entity, e.Detail)
}

// ErrExternalService indicates a failure in an external collaborator call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates a missing or invalid caller identity.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// IsBusinessError reports whether err is a logical failure that must never be retried.
func IsBusinessError(err error) bool {
	var (
		notFound     *ErrNotFound
		validation   *ErrValidation
		guard        *ErrStateGuard
		forbidden    *ErrForbidden
		inconsistent *ErrDataInconsistency
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &validation) ||
		errors.As(err, &guard) ||
		errors.As(err, &forbidden) ||
		errors.As(err, &inconsistent)
}
