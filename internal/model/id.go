// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// DraftIDString is how a Draft selection is rendered and parsed.
const DraftIDString = "new"

// =============================================================================
// CONVERSATION ID
// =============================================================================

// ConversationID identifies the active conversation selection.
//
// It has three states: None (the zero value), Draft (an unsaved conversation
// that exists only on the client) and Persisted (a server-issued id). Keeping
// Draft out of the string id space means a server id of "new" can never be
// mistaken for the draft selection.
type ConversationID struct {
	id    string
	draft bool
}

// None is the empty selection.
var None = ConversationID{}

// Draft is the unsaved new-conversation selection.
var Draft = ConversationID{draft: true}

// Persisted wraps a server-issued conversation id.
// An empty id yields None.
func Persisted(id string) ConversationID {
	return ConversationID{id: id}
}

// ParseConversationID converts a raw string into a selection.
// "new" is Draft, "" is None and anything else is Persisted.
func ParseConversationID(s string) ConversationID {
	switch s {
	case "":
		return None
	case DraftIDString:
		return Draft
	default:
		return Persisted(s)
	}
}

// IsNone reports whether nothing is selected.
func (c ConversationID) IsNone() bool {
	return !c.draft && c.id == ""
}

// IsDraft reports whether the selection is the unsaved conversation.
func (c ConversationID) IsDraft() bool {
	return c.draft
}

// IsPersisted reports whether the selection refers to a server conversation.
func (c ConversationID) IsPersisted() bool {
	return !c.draft && c.id != ""
}

// Value returns the server id and true for persisted selections.
func (c ConversationID) Value() (string, bool) {
	if c.IsPersisted() {
		return c.id, true
	}
	return "", false
}

// Is reports whether the selection is the persisted conversation id.
func (c ConversationID) Is(id string) bool {
	return c.IsPersisted() && c.id == id
}

// String returns "", "new" or the server id.
func (c ConversationID) String() string {
	if c.draft {
		return DraftIDString
	}
	return c.id
}
