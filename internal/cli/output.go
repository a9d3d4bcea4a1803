package cli

import (
	"errors"
	"fmt"
)

// Exit codes for the linecalc command.
const (
	ExitSuccess      = 0 // Every line evaluated
	ExitFailure      = 1 // A line failed to evaluate
	ExitCommandError = 2 // Bad flags, configuration, or I/O
)

// ExitError is an error with the exit code the process should use.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Context for Err; may be empty
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that carry no code
// come from cobra itself, so they are command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}
