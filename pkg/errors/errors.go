// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for the
// onboarding workflow.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies workflow errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeToolFailure indicates a gateway tool invocation failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeTimeout indicates an operation exceeded its time or round limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeNotFound indicates a resource (case, capability) was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeSessionError indicates a session store operation failed.
	CodeSessionError ErrorCode = "SESSION_ERROR"

	// CodeLLMError indicates a completion-provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"
)

// WorkflowError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type WorkflowError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *WorkflowError) MarshalJSON() ([]byte, error) {
	type Alias WorkflowError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new WorkflowError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *WorkflowError {
	return &WorkflowError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *WorkflowError) WithContext(key string, value interface{}) *WorkflowError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *WorkflowError) WithRecoverable(recoverable bool) *WorkflowError {
	e.Recoverable = recoverable
	return e
}

// AsWorkflowError converts an error to a WorkflowError, wrapping unknown
// errors as internal.
func AsWorkflowError(err error) *WorkflowError {
	if err == nil {
		return nil
	}
	if we, ok := err.(*WorkflowError); ok {
		return we
	}
	return New(CodeInternal, "wrapped error", err)
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput:
		return 400
	case CodeTimeout:
		return 408
	default:
		return 500
	}
}
