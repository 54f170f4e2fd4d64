// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strconv"
	"strings"
	"time"
)

// TempIDPrefix marks client-minted message ids awaiting server confirmation.
const TempIDPrefix = "temp-user-"

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender represents the author of a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAssistant:
		return "Assistant"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation transcript.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewTempUserMessage creates an optimistic user message with a client-minted id.
// conversationID is empty while the conversation is still a draft.
func NewTempUserMessage(conversationID, content string, at time.Time) Message {
	return Message{
		ID:             TempIDPrefix + strconv.FormatInt(at.UnixNano(), 10),
		ConversationID: conversationID,
		Sender:         SenderUser,
		Content:        content,
		CreatedAt:      at,
	}
}

// IsTemporary reports whether the message id was minted by the client.
func (m Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IndexOfMessage returns the position of the message with id, or -1.
func IndexOfMessage(msgs []Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}
