// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies command failures. The category selects the
// process exit status.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// unknown flags, missing build command, bad config values.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates the build command does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryInternal indicates an unexpected failure: the report
	// channel could not be opened, a file could not be written.
	CategoryInternal ErrorCategory = "internal"
)

// Exit statuses per category. 127 is the shell's "command not found".
const (
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 127
)

// Error is a categorized error returned by commands. It wraps an inner
// error, preserving the chain for errors.Is and errors.As.
type Error struct {
	// Category classifies the error.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// ExitCode maps the category to a process exit status.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return ExitUsage
	case CategoryNotFound:
		return ExitNotFound
	default:
		return ExitFailure
	}
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: the build command does not exist.
func NotFound(format string, args ...any) *Error {
	return &Error{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure or I/O error.
func Internal(format string, args ...any) *Error {
	return &Error{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
