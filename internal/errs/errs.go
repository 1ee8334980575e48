// Package errs defines the error taxonomy shared by the planner, the
// re-optimization session and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports a caller-contract violation: malformed weights,
// broken invariants or out-of-range inputs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// InfeasibilityRejection reports an edit that failed a hard constraint,
// budget or time check.
type InfeasibilityRejection struct {
	Reason string
}

func (e *InfeasibilityRejection) Error() string {
	return "rejected: " + e.Reason
}

// NotFoundError reports an unknown stop, trip or session id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConfigurationError reports a missing external client for an invoked feature.
type ConfigurationError struct {
	Component string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Component, e.Message)
}

// Validation builds a *ValidationError.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Infeasible builds an *InfeasibilityRejection.
func Infeasible(format string, args ...interface{}) error {
	return &InfeasibilityRejection{Reason: fmt.Sprintf(format, args...)}
}

// NotFound builds a *NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Configuration builds a *ConfigurationError.
func Configuration(component, message string) error {
	return &ConfigurationError{Component: component, Message: message}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsInfeasible(err error) bool {
	var target *InfeasibilityRejection
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
