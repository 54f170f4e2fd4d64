// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for chatdesk commands.
//
// Commands always return errors; Execute prints them once and maps them
// to an exit code.
package cli

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents rejected user input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// errAdminRequired is returned by admin commands for non-admin sessions.
var errAdminRequired = errors.New("this command requires an administrator account")

// =============================================================================
// CLASSIFICATION
// =============================================================================

// GetExitCode maps err to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErrs config.ValidateErrors
	var ttyErr *TTYRequiredError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrExpired),
		api.IsAuthError(err),
		errors.Is(err, api.ErrForbidden),
		errors.Is(err, errAdminRequired):
		return ExitAuthError
	case errors.Is(err, api.ErrUnavailable):
		return ExitNetworkError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFoundError
	}
	return ExitGeneralError
}

// errorHint suggests the next step for errors the user can fix.
func errorHint(err error) string {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "Run `chatdesk login` (or `chatdesk register`) first."
	case errors.Is(err, session.ErrExpired), api.IsAuthError(err):
		return "Your session is no longer valid. Run `chatdesk login`."
	case errors.Is(err, api.ErrUnavailable):
		return "Check that the backend is running (`chatdesk serve`) and api.base_url is correct."
	case api.StatusCode(err) >= 500:
		return fmt.Sprintf("The backend failed with HTTP %d. Check its log.", api.StatusCode(err))
	case errors.Is(err, errAdminRequired):
		return "Log in with an administrator account."
	}
	return ""
}
