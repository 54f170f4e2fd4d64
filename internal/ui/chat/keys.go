// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	// Global
	Quit        key.Binding
	SwitchFocus key.Binding
	New         key.Binding
	Dismiss     key.Binding
	Help        key.Binding

	// Input
	Submit  key.Binding
	Newline key.Binding

	// Transcript
	PageUp   key.Binding
	PageDown key.Binding

	// Sidebar
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Rename key.Binding
	Delete key.Binding

	// Dialogs
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("Tab", "sidebar/input"),
		),
		New: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "dismiss"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1", "ctrl+g"),
			key.WithHelp("F1", "help"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("ctrl+j", "alt+enter"),
			key.WithHelp("C-j", "newline"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "open"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/Esc", "cancel"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.SwitchFocus, k.New, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Newline, k.PageUp, k.PageDown},
		{k.Up, k.Down, k.Open, k.Rename, k.Delete},
		{k.SwitchFocus, k.New, k.Dismiss, k.Help, k.Quit},
	}
}

// SidebarHelp returns the bindings shown while the sidebar has focus.
func (k KeyMap) SidebarHelp() []key.Binding {
	return []key.Binding{k.Open, k.Rename, k.Delete, k.New, k.SwitchFocus}
}
