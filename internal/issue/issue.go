// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
)

type (
	// ActionableError is an error carrying context for user-facing messages:
	// what operation failed, what resource was involved, and suggestions for
	// fixing the problem.
	//
	// Use the ErrorContext builder for incremental construction:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("validate fragment").
	//		WithSuggestion("Declare a PostconditionBase subclass").
	//		Wrap(parseErr).
	//		Build()
	ActionableError struct {
		// Operation describes what was being attempted (e.g., "translate path").
		Operation string

		// Resource identifies the file, path, or entity involved (optional).
		Resource string

		// Suggestions provides hints on how to fix the issue (optional).
		Suggestions []string

		// Cause is the underlying error that triggered this one (optional).
		Cause error
	}

	// ErrorContext is a fluent builder for ActionableError values.
	ErrorContext struct {
		operation   string
		resource    string
		suggestions []string
		cause       error
	}
)

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation wraps an error with operation context. Returns nil when
// err is nil so call sites can wrap unconditionally.
func WrapWithOperation(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// WrapWithContext wraps an error with operation and resource context.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

// Error implements the error interface with a concise single-line message.
func (e *ActionableError) Error() string {
	var msg strings.Builder

	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)

	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}

	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}

	return msg.String()
}

// Unwrap returns the underlying cause for use with errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Verbose returns a multi-line message including suggestions, for display
// when the caller asked for detail.
func (e *ActionableError) Verbose() string {
	var msg strings.Builder
	msg.WriteString(e.Error())
	for _, s := range e.Suggestions {
		msg.WriteString("\n  - ")
		msg.WriteString(s)
	}
	return msg.String()
}

// Is reports whether target matches this error's operation and resource.
func (e *ActionableError) Is(target error) bool {
	var other *ActionableError
	if errors.As(target, &other) {
		return e.Operation == other.Operation && e.Resource == other.Resource
	}
	return false
}

// WithOperation sets the operation being attempted.
func (c *ErrorContext) WithOperation(operation string) *ErrorContext {
	c.operation = operation
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(resource string) *ErrorContext {
	c.resource = resource
	return c
}

// WithSuggestion appends a remediation hint.
func (c *ErrorContext) WithSuggestion(suggestion string) *ErrorContext {
	c.suggestions = append(c.suggestions, suggestion)
	return c
}

// Wrap records the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build produces the ActionableError.
func (c *ErrorContext) Build() *ActionableError {
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}
