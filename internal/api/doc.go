// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat assistant backend.
//
// The backend owns authentication, persistence and reply generation. This
// package only maps its REST contract onto Go calls and classifies failures
// so callers can tell an expired session from a missing conversation.
//
// # Key Types
//
//   - Client: HTTP client with bearer credentials and client-side rate limiting
//   - ConversationList: Sidebar payload with an optional initial selection
//   - ChatResponse: Persisted user message plus the generated reply
//   - APIError: Non-2xx response with status and server message
//
// # Usage
//
//	client := api.NewClient("http://localhost:8080/api").WithToken(token)
//	resp, err := client.SendChat(ctx, "What is SOLID?", nil)
//	if errors.Is(err, api.ErrUnauthorized) {
//	    // prompt for login
//	}
//
// # Retries
//
// The client never retries. Every failure is terminal for the operation and
// is reported to the caller, which decides whether to offer a retry.
package api
