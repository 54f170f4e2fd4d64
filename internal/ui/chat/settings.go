// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

// SettingsMsg carries display settings reloaded while the client runs.
type SettingsMsg struct {
	Markdown     bool
	Theme        string
	SidebarWidth int
}

// applySettings swaps the theme, markdown renderer and sidebar width.
func (m *Model) applySettings(msg SettingsMsg) {
	mode := strings.ToLower(strings.TrimSpace(msg.Theme))
	if mode != styles.ModeDark && mode != styles.ModeLight {
		// Keep the background detected at startup instead of querying the
		// terminal while the program owns it.
		mode = styles.ModeLight
		if m.theme.IsDark {
			mode = styles.ModeDark
		}
	}
	m.theme = styles.NewTheme(mode)
	m.sidebar.SetDelegate(itemDelegate{theme: m.theme, active: m.store.Active, now: m.opts.Now})

	m.opts.Markdown = msg.Markdown
	m.opts.Theme = msg.Theme
	if msg.SidebarWidth > 0 {
		m.opts.SidebarWidth = msg.SidebarWidth
	}

	m.markdown = nil
	if msg.Markdown {
		m.markdown = newMarkdownRenderer(m.theme.GlamourStyle())
	}

	if m.ready {
		m.layout()
	}
	m.refresh()
}
