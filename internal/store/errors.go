// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/jeranaias/chatdesk/internal/api"
)

// Validation errors. These are raised before any network call.
var (
	// ErrEmptyMessage is returned when sending blank content.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrEmptyTitle is returned when renaming to a blank title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrUnknownConversation is returned for ids not in the conversation list.
	ErrUnknownConversation = errors.New("conversation not in list")

	// ErrConversationPending is returned when a draft send is already in flight.
	ErrConversationPending = errors.New("conversation is still being created")

	// ErrNoPendingDelete is returned by ConfirmDelete without a prior RequestDelete.
	ErrNoPendingDelete = errors.New("no delete pending")
)

// =============================================================================
// OPERATIONS AND KINDS
// =============================================================================

// Op names a store operation for error reporting.
type Op string

const (
	OpLoad   Op = "load"
	OpSelect Op = "select"
	OpSend   Op = "send"
	OpRename Op = "rename"
	OpDelete Op = "delete"
)

// Kind classifies a failure.
type Kind int

const (
	// KindValidation means the input was rejected before the network.
	KindValidation Kind = iota
	// KindNetwork means the backend could not be reached or timed out.
	KindNetwork
	// KindAuth means the session is invalid or the caller lacks permission.
	KindAuth
	// KindNotFound means the backend no longer has the resource.
	KindNotFound
	// KindServer is any other backend failure.
	KindServer
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not found"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// =============================================================================
// OP ERROR
// =============================================================================

// OpError is the error recorded by a failed store operation.
type OpError struct {
	Op   Op
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Retryable reports whether offering a retry makes sense.
// Auth failures need a new login instead.
func (e *OpError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// Message returns the text shown to the user.
func (e *OpError) Message() string {
	switch e.Kind {
	case KindValidation:
		switch {
		case errors.Is(e.Err, ErrEmptyMessage):
			return "Type a message before sending."
		case errors.Is(e.Err, ErrEmptyTitle):
			return "Title cannot be empty."
		case errors.Is(e.Err, ErrConversationPending):
			return "Wait for the new conversation to be created."
		case errors.Is(e.Err, ErrUnknownConversation):
			return "That conversation no longer exists."
		}
		return fmt.Sprintf("Could not %s: %v", e.Op, e.Err)
	case KindAuth:
		if errors.Is(e.Err, api.ErrForbidden) {
			return fmt.Sprintf("You don't have permission to %s this conversation.", e.permissionVerb())
		}
		return "Your session has expired. Run `chatdesk login` to sign in again."
	case KindNotFound:
		return "Conversation not found. It may have been deleted."
	case KindNetwork:
		return fmt.Sprintf("Could not reach the server to %s. Try again.", e.verb())
	default:
		return fmt.Sprintf("The server failed to %s. Try again.", e.verb())
	}
}

func (e *OpError) verb() string {
	switch e.Op {
	case OpLoad:
		return "load conversations"
	case OpSelect:
		return "load messages"
	case OpSend:
		return "send the message"
	case OpRename:
		return "rename the conversation"
	case OpDelete:
		return "delete the conversation"
	default:
		return string(e.Op)
	}
}

func (e *OpError) permissionVerb() string {
	switch e.Op {
	case OpLoad, OpSelect:
		return "view"
	case OpSend:
		return "post to"
	default:
		return string(e.Op)
	}
}

// classify wraps err into an OpError for op.
func classify(op Op, err error) *OpError {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}

	kind := KindServer
	switch {
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrForbidden):
		kind = KindAuth
	case errors.Is(err, api.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, api.ErrBadRequest):
		kind = KindValidation
	case errors.Is(err, api.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = KindNetwork
	}
	return &OpError{Op: op, Kind: kind, Err: err}
}

func invalid(op Op, err error) *OpError {
	return &OpError{Op: op, Kind: KindValidation, Err: err}
}
