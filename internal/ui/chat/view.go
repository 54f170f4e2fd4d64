// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/store"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
	"github.com/jeranaias/chatdesk/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading conversations..."
	}

	top := m.transcript.View()
	if m.help.ShowAll {
		top = lipgloss.NewStyle().
			Width(m.transcript.Width).
			Height(m.transcript.Height).
			Render(m.theme.Dialog.Render(m.help.FullHelpView(m.keys.FullHelp())))
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		top,
		m.renderToast(),
		m.renderInput(),
	)

	body := main
	if sw := m.sidebarWidth(); sw > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(sw), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(width int) string {
	style := m.theme.Sidebar
	if m.focus == focusSidebar && m.mode == modeNormal {
		style = m.theme.SidebarFocused
	}

	header := m.theme.SidebarHeader.Render(
		util.TruncateWidth(fmt.Sprintf("Conversations (%d)", len(m.store.Conversations())), width-4))

	var content string
	if len(m.sidebar.Items()) == 0 {
		content = m.theme.Hint.Render(" No conversations yet")
	} else {
		content = m.sidebar.View()
	}

	return style.
		Width(width - 2).
		Height(max(m.height-3, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, content))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the active conversation for the viewport.
func (m Model) renderTranscript() string {
	width := calculateContentWidth(m.transcript.Width, 2)
	entries := m.store.Transcript()

	if len(entries) == 0 {
		return m.theme.EmptyState.Render(m.emptyText())
	}

	now := m.opts.Now()
	blocks := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		blocks = append(blocks, m.renderEntry(e, width, now))
	}
	if m.store.Sending() && !m.store.Revealing() {
		blocks = append(blocks, m.theme.AssistantLabel.Render(model.SenderAssistant.DisplayName())+" "+
			m.theme.Hint.Render(m.spinner.View()+" thinking"))
	}
	return m.theme.Transcript.Render(strings.Join(blocks, "\n\n"))
}

func (m Model) emptyText() string {
	active := m.store.Active()
	switch {
	case m.store.Busy() && active.IsPersisted():
		return "Loading messages..."
	case active.IsPersisted():
		return "This conversation has no messages yet."
	case len(m.store.Conversations()) == 0 && m.store.Busy():
		return "Loading conversations..."
	default:
		return "Start a new conversation: type a message and press Enter."
	}
}

func (m Model) renderEntry(e store.Entry, width int, now time.Time) string {
	label := m.theme.UserLabel.Render(e.Sender.DisplayName())
	if e.Sender == model.SenderAssistant {
		label = m.theme.AssistantLabel.Render(e.Sender.DisplayName())
	}
	header := label + " " + m.theme.Timestamp.Render(formatTimestamp(e.CreatedAt, now))
	if e.IsTemporary() {
		header += " " + m.theme.Hint.Render(styles.StatusIndicators.Pending+" sending")
	}
	if shown, total := m.store.RevealProgress(); e.Partial && total > 0 {
		header += " " + m.theme.Hint.Render(fmt.Sprintf("typing %d%%", shown*100/total))
	}

	var body string
	switch {
	case e.Partial:
		body = m.theme.PendingText.Render(wrapText(e.Content+styles.TypingCursor, width-2))
	case e.Sender == model.SenderAssistant && m.markdown != nil:
		body = m.theme.AssistantText.Render(m.markdown.render(e.ID, e.Content, width))
	default:
		body = m.theme.UserText.Render(wrapText(e.Content, width-2))
	}
	return header + "\n" + body
}

// =============================================================================
// TOAST, INPUT AND DIALOGS
// =============================================================================

func (m Model) renderToast() string {
	width := m.mainWidth()
	if err := m.store.Err(); err != nil {
		text := styles.StatusIndicators.Error + " " + err.Message()
		if err.Op == store.OpSend && err.Retryable() {
			text += " Press Enter to resend."
		}
		return m.theme.Toast.Render(util.TruncateWidth(text, max(width-2, 1)))
	}
	if m.notice != "" {
		return m.theme.Notice.Render(util.TruncateWidth(styles.StatusIndicators.Success+" "+m.notice, max(width-2, 1)))
	}
	return ""
}

func (m Model) renderInput() string {
	width := m.mainWidth()

	switch m.mode {
	case modeRename:
		title := m.theme.DialogTitle.Render("Rename conversation")
		hint := m.theme.Hint.Render("Enter to save, Esc to cancel")
		return m.theme.Dialog.Width(max(width-2, 1)).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, m.rename.View(), hint))

	case modeConfirmDelete:
		name := "this conversation"
		if conv, ok := m.store.Conversation(m.store.PendingDelete()); ok {
			name = fmt.Sprintf("%q", util.TruncateWidth(conv.GetTitle(), max(width-30, 8)))
		}
		title := m.theme.DialogTitle.Render("Delete " + name + "?")
		hint := m.theme.Hint.Render("This cannot be undone. y to delete, n or Esc to keep it.")
		return m.theme.Dialog.Width(max(width-2, 1)).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", hint))
	}

	style := m.theme.InputBox
	if m.focus == focusInput {
		style = m.theme.InputBoxFocused
	}
	return style.Width(max(width-2, 1)).Render(m.input.View())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	left := m.theme.StatusBrand.Render("chatdesk")
	if m.opts.UserName != "" {
		left += m.theme.StatusText.Render(m.opts.UserName)
	}
	if m.store.Busy() {
		left += m.theme.StatusText.Render(m.spinner.View() + " " + m.busyText())
	}

	bindings := m.keys.ShortHelp()
	if m.focus == focusSidebar {
		bindings = m.keys.SidebarHelp()
	}
	keys := m.theme.StatusText.Render(m.help.ShortHelpView(bindings))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(keys)
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + keys)
}

func (m Model) busyText() string {
	if m.store.Sending() {
		return "sending"
	}
	return "loading"
}
