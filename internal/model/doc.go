// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the API client, the
// conversation store and the terminal UI.
//
// # Key Types
//
//   - ConversationID: Selection identifier, one of None, Draft or Persisted(id)
//   - Conversation: Sidebar entry with title and recency timestamps
//   - Message: Single transcript entry with sender and content
//   - Sender: Message author enumeration (user, assistant)
//
// # Usage
//
// Start an unsaved conversation and show an optimistic message:
//
//	active := model.Draft
//	msg := model.NewTempUserMessage("", "Hello!", time.Now())
//	fmt.Println(active, msg.IsTemporary()) // new true
//
// Adopt the server identifier once the first message is persisted:
//
//	active = model.Persisted(resp.ConversationID)
package model
