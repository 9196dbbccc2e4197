// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/variantc/variantc/internal/config"
	"github.com/variantc/variantc/pkg/overlay"
	"github.com/variantc/variantc/pkg/tenant"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE
// handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps err to a process exit code. Rejected resolver input and
// rejected configuration exit with ExitInvalidInput.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, overlay.ErrInvalidInput),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, tenant.ErrInvalidTenantSet):
		return ExitInvalidInput
	}
	return ExitFailure
}

// usageError reports invalid flag combinations.
func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitInvalidInput, Err: fmt.Errorf(format, args...)}
}
