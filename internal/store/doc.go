// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side conversation state and keeps it in
// step with the backend, which is the source of truth.
//
// The store is driven by the Bubble Tea event loop. Operations mutate state
// synchronously and return a tea.Cmd for any network work; the command's
// result comes back as a message that Update applies in a single step, so a
// render never observes a half-applied change. Commands capture what they need
// when issued and never touch the store themselves.
//
// # Key Types
//
//   - Store: conversation list, active selection and active transcript
//   - Backend: the REST operations the store needs (satisfied by *api.Client)
//   - OpError: a failed operation, classified for display
//   - Entry: a transcript row, possibly a partially revealed reply
//
// # Consistency
//
// The active selection is always None, Draft, or an id present in the list.
// Message fetches are sequence-numbered and only the latest one commits.
// Optimistic user messages are reconciled by their temporary id, never by
// position. Replies are revealed by a reveal.Animator and appended only when
// it completes.
//
// # Usage
//
//	s := store.New(client, store.Options{})
//	cmd := s.Load()
//	...
//	// in the Bubble Tea Update:
//	cmd = s.Update(msg)
//	...
//	cmd, err := s.Send("What is SOLID?")
package store
