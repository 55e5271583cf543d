// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1, or with
// the code carried by an ExitError.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	code := 1
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		code = coder.ExitCode()
	}
	os.Exit(code)
}

// ExitError is an error with an explicit process exit code.
type ExitError struct {
	Code int
	Err  error
}

// Exit wraps a formatted message with an exit code.
func Exit(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the requested exit code.
func (e *ExitError) ExitCode() int { return e.Code }
