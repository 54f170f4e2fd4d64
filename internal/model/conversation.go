// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// TitleMaxRunes is the length of a title derived from a first message.
const TitleMaxRunes = 50

// DefaultTitleText is shown for conversations without a title.
const DefaultTitleText = "New Conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is one entry of the conversation sidebar.
// Messages are not embedded: the store only holds the active transcript.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewConversation creates a conversation record for a freshly persisted id.
// The title is derived from the first message content.
func NewConversation(id, firstMessage string, at time.Time) Conversation {
	return Conversation{
		ID:        id,
		Title:     DefaultTitle(firstMessage),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// GetTitle returns the conversation title or a default.
func (c Conversation) GetTitle() string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return DefaultTitleText
}

// RecencyTime is the timestamp used for sidebar ordering.
// UpdatedAt wins; CreatedAt is the fallback for records never updated.
func (c Conversation) RecencyTime() time.Time {
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// DefaultTitle derives a title from the first message of a conversation.
// Uses rune-based truncation on the NFC form, so a decomposed accent counts
// as one rune and is never split from its base letter.
func DefaultTitle(content string) string {
	content = norm.NFC.String(strings.Join(strings.Fields(content), " "))
	if content == "" {
		return DefaultTitleText
	}
	runes := []rune(content)
	if len(runes) <= TitleMaxRunes {
		return content
	}
	return strings.TrimSpace(string(runes[:TitleMaxRunes-3])) + "..."
}

// NormalizeTitle trims a user-supplied title. An empty result means the
// rename should be cancelled.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

// =============================================================================
// ORDERING
// =============================================================================

// SortByRecency orders conversations most recently updated first.
// The sort is stable so equal timestamps keep their current order.
func SortByRecency(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].RecencyTime().After(convs[j].RecencyTime())
	})
}

// IndexOf returns the position of id in convs, or -1.
func IndexOf(convs []Conversation, id string) int {
	for i := range convs {
		if convs[i].ID == id {
			return i
		}
	}
	return -1
}
