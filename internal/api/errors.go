// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error variables for backend failures.
// Use errors.Is to classify an error returned by Client.
var (
	// ErrUnauthorized indicates missing, invalid or expired credentials (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller may not touch the resource (403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the resource does not exist (404).
	ErrNotFound = errors.New("not found")

	// ErrBadRequest indicates the backend rejected the payload (400, 422).
	ErrBadRequest = errors.New("bad request")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrMalformedResponse indicates a 2xx response that breaks the contract.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	kind    error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// Unwrap exposes the sentinel matching the status code, if any.
func (e *APIError) Unwrap() error {
	return e.kind
}

// newAPIError maps a status code to an APIError carrying the right sentinel.
func newAPIError(status int, message string) *APIError {
	e := &APIError{Status: status, Message: message}
	switch status {
	case http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case http.StatusForbidden:
		e.kind = ErrForbidden
	case http.StatusNotFound:
		e.kind = ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.kind = ErrBadRequest
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.kind = ErrUnavailable
	}
	return e
}

// IsAuthError reports whether err means the session must be re-established.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
