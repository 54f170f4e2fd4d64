// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session stores the credentials left by `chatdesk login`.
//
// # Key Types
//
//   - Credentials: bearer token, user and backend URL
//   - Store: reads and writes ~/.chatdesk/session.json (0600)
//
// # Usage
//
//	store := session.NewStore(dir)
//	creds, err := store.Load()
//	if errors.Is(err, session.ErrNoSession) {
//	    // prompt for login
//	}
package session
