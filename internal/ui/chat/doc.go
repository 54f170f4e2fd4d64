// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat screen of the chatdesk TUI.

The screen is a Bubble Tea model layered over a store.Store. The store owns
every piece of conversation state; this package only lays it out and turns
keys into store operations.

# Key Components

## Model (model.go)

Holds presentation state: the sidebar list, transcript viewport, message
editor, rename field, spinner and help. refresh rebuilds the sidebar rows and
transcript from the store after every message.

## Update Loop (update.go)

Routes keys by mode (normal, rename, confirm-delete) and focus (input or
sidebar). Everything else is forwarded to Store.Update, which applies backend
results and reveal ticks. A failed send puts its text back in the editor.

## View Rendering (view.go)

Sidebar with the conversation list, transcript with assistant replies
rendered as markdown (markdown.go, glamour), an error toast showing
OpError.Message, the editor or the active dialog, and a status bar.

# Usage

	s := store.New(client, store.Options{})
	m := chat.New(s, chat.Options{Markdown: true, Theme: "auto"})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
*/
package chat
