// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chatdesk TUI.
//
// All colors are lipgloss.AdaptiveColor values. NewTheme resolves the
// background once (from config or via termenv) and pins lipgloss to it, so
// the transcript's markdown renderer and the chrome agree on light or dark.
//
// # Key Types
//
//   - Theme: every lipgloss style used by the chat view
//   - SpinnerConfig: frame set for the sending indicator
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	theme.SetSize(width, height)
//	fmt.Println(theme.Toast.Render("[X] backend unreachable"))
package styles
