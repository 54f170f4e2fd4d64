// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/model"
)

// Result messages produced by store commands. They carry everything captured
// when the command was issued; Store.Update applies them on the UI goroutine.
// The UI may inspect them after forwarding, e.g. to refresh the viewport.

// LoadedMsg is the result of Load.
type LoadedMsg struct {
	gen  int
	List *api.ConversationList
	Err  error
}

// SelectedMsg is the result of fetching a conversation's messages.
type SelectedMsg struct {
	gen      int
	seq      int
	ID       string
	Messages []model.Message
	Err      error
}

// SentMsg is the result of a send.
type SentMsg struct {
	gen      int
	draftSeq int
	target   model.ConversationID
	tempID   string
	content  string
	Response *api.ChatResponse
	Err      error
}

// Content returns the text that was sent, so a failed send can be restored
// to the input.
func (m SentMsg) Content() string {
	return m.content
}

// RenamedMsg is the result of a rename.
type RenamedMsg struct {
	gen          int
	ID           string
	Conversation *model.Conversation
	Err          error
}

// DeletedMsg is the result of a delete.
type DeletedMsg struct {
	gen int
	ID  string
	Err error
}
