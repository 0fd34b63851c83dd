package session

import "fmt"

// ConfigurationError reports invalid session construction inputs: a bad
// inventory source, conflicting host sources, malformed credential material.
// It is never recoverable locally and always surfaces before any execution.
type ConfigurationError struct {
	Message string
	Cause   error
}

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{Message: message, Cause: cause}
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// RoleResolutionError reports a role identifier that could not be located.
type RoleResolutionError struct {
	Role  string
	Cause error
}

func NewRoleResolutionError(role string, cause error) *RoleResolutionError {
	return &RoleResolutionError{Role: role, Cause: cause}
}

func (e *RoleResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("role '%s' could not be resolved: %v", e.Role, e.Cause)
	}
	return fmt.Sprintf("role '%s' could not be resolved", e.Role)
}

func (e *RoleResolutionError) Unwrap() error { return e.Cause }

// ExecutionError wraps any failure reported while compiling or running a
// play: unreachable hosts, failed tasks, backend-internal faults. The
// session adds no interpretation or retry; the cause is surfaced as-is
// after the engine handle has been released.
type ExecutionError struct {
	Play  string
	Cause error
}

func NewExecutionError(playName string, cause error) *ExecutionError {
	return &ExecutionError{Play: playName, Cause: cause}
}

func (e *ExecutionError) Error() string {
	if e.Play == "" {
		return fmt.Sprintf("execution failed: %v", e.Cause)
	}
	return fmt.Sprintf("play '%s' execution failed: %v", e.Play, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }
