// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/store"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SettingsMsg:
		m.applySettings(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.store.Sending() && !m.store.Revealing() {
			m.refresh()
		}
		return m, cmd
	}

	// Store results and reveal ticks.
	cmd := m.store.Update(msg)
	if err := m.store.Err(); sessionExpired(err) {
		// The session is gone; clear everything and hand back to the CLI.
		m.authErr = err
		m.store.Reset()
		m.quitting = true
		return m, tea.Quit
	}
	m.noteResult(msg)
	m.refresh()

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, tea.Batch(cmd, inputCmd)
}

// sessionExpired reports whether err means the token was rejected.
func sessionExpired(err *store.OpError) bool {
	return err != nil && api.IsAuthError(err)
}

// noteResult reacts to finished operations after the store applied them.
func (m *Model) noteResult(msg tea.Msg) {
	switch msg := msg.(type) {
	case store.SentMsg:
		// Put a failed message back so Enter retries it.
		if msg.Err != nil && m.input.Value() == "" {
			m.input.SetValue(msg.Content())
		}
	case store.RenamedMsg:
		if msg.Err == nil && m.store.Err() == nil {
			m.notice = "Conversation renamed"
		}
	case store.DeletedMsg:
		if msg.Err == nil && m.store.Err() == nil {
			m.notice = "Conversation deleted"
		}
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.store.Close()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case modeRename:
		return m.handleRenameKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if m.store.Err() != nil || m.notice != "" {
			m.store.ClearErr()
			m.notice = ""
			return m, nil
		}
		if m.focus == focusSidebar {
			return m, m.focusInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.notice = ""
		m.store.Create()
		cmd := m.focusInput()
		m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == focusInput && m.sidebarWidth() > 0 {
			m.focusSidebar()
			return m, nil
		}
		return m, m.focusInput()

	case key.Matches(msg, m.keys.PageUp):
		m.transcript.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.transcript.ViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		m.notice = ""
		cmd, err := m.store.Send(m.input.Value())
		if err == nil {
			m.input.Reset()
			m.refresh()
			m.transcript.GotoBottom()
			return m, cmd
		}
		// The store records the validation error for the toast.
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item, hasItem := m.sidebar.SelectedItem().(conversationItem)

	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.CursorUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.sidebar.CursorDown()
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if !hasItem {
			return m, nil
		}
		m.notice = ""
		cmd := m.store.Select(item.id())
		focusCmd := m.focusInput()
		m.refresh()
		return m, tea.Batch(cmd, focusCmd)

	case key.Matches(msg, m.keys.Rename):
		if !hasItem || item.draft {
			return m, nil
		}
		m.mode = modeRename
		m.renameTarget = item.conv.ID
		m.rename.SetValue(item.conv.GetTitle())
		m.rename.CursorEnd()
		return m, m.rename.Focus()

	case key.Matches(msg, m.keys.Delete):
		if !hasItem || item.draft {
			return m, nil
		}
		if err := m.store.RequestDelete(item.conv.ID); err == nil {
			m.mode = modeConfirmDelete
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeNormal
		m.rename.Blur()
		m.notice = ""
		cmd := m.store.Rename(m.renameTarget, m.rename.Value())
		m.renameTarget = ""
		m.refresh()
		return m, cmd

	case tea.KeyEsc:
		m.mode = modeNormal
		m.rename.Blur()
		m.renameTarget = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeNormal
		m.notice = ""
		cmd := m.store.ConfirmDelete()
		m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.Deny):
		m.mode = modeNormal
		m.store.CancelDelete()
		return m, nil
	}
	return m, nil
}
