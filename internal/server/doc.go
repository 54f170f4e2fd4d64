// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the chatdesk development backend.
//
// It serves the JSON API consumed by package api so the terminal client can
// be run end to end without a hosted backend. Data lives in a pure-Go SQLite
// database through gorm; replies come from a Responder.
//
// # Endpoints
//
// All routes live under /api:
//
//	GET    /health                      - liveness and responder name
//	POST   /auth/register               - create account, returns token
//	POST   /auth/login                  - exchange credentials for token
//	GET    /auth/me                     - current account
//	GET    /conversations               - caller's conversations, most recent first
//	GET    /conversations/{id}/messages - transcript in order
//	PATCH  /conversations/{id}          - rename
//	DELETE /conversations/{id}          - delete with its messages
//	POST   /chat                        - send a message, returns both messages
//	POST   /feedback                    - rate the assistant
//	GET    /admin/feedback              - all feedback (admin only)
//
// Errors are returned as {"error": "..."}. Conversations owned by another
// user answer 403, unknown ones 404. The first account registered is an admin.
//
// # Key Types
//
//   - Server: router, middleware chain and lifecycle
//   - Options: listen address, token settings, CORS, rate limits, responder
//   - Responder: EchoResponder (default) or OpenAIResponder
//   - TokenManager: HS256 bearer tokens
//
// # Usage
//
//	db, err := server.OpenDB("chatdesk.db")
//	if err != nil {
//	    return err
//	}
//	srv, err := server.New(db, server.OptionsFromConfig(cfg))
//	if err != nil {
//	    return err
//	}
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
