// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"time"

	"github.com/jeranaias/chatdesk/internal/model"
)

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ConversationList is the response of GET /conversations.
type ConversationList struct {
	Conversations        []model.Conversation `json:"conversations"`
	ActiveConversationID string               `json:"activeConversationId,omitempty"`
	Messages             []model.Message      `json:"messages,omitempty"`
}

// renameRequest is the body of PATCH /conversations/{id}.
type renameRequest struct {
	Title string `json:"title"`
}

// =============================================================================
// CHAT
// =============================================================================

// ChatRequest is the body of POST /chat.
// A nil Conversation asks the backend to create a conversation for this send.
type ChatRequest struct {
	Content      string  `json:"content"`
	Conversation *string `json:"conversation"`
}

// ChatResponse is the response of POST /chat.
type ChatResponse struct {
	ConversationID   string        `json:"conversationId"`
	UserMessage      model.Message `json:"userMessage"`
	AssistantMessage model.Message `json:"assistantMessage"`
}

// =============================================================================
// AUTH
// =============================================================================

// User is the authenticated account.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// =============================================================================
// FEEDBACK
// =============================================================================

// Feedback is a user's rating of the assistant.
type Feedback struct {
	ID             string    `json:"id,omitempty"`
	UserEmail      string    `json:"userEmail,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// MinRating and MaxRating bound Feedback.Rating.
const (
	MinRating = 1
	MaxRating = 5
)

// apiErrorResponse is the backend's error body.
type apiErrorResponse struct {
	Error string `json:"error"`
}
