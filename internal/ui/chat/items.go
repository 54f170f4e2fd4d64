// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
	"github.com/jeranaias/chatdesk/internal/util"
)

// draftLabel is the sidebar row of the conversation being started.
const draftLabel = "New conversation"

// =============================================================================
// SIDEBAR ITEMS
// =============================================================================

// conversationItem adapts a conversation, or the draft, to list.Item.
type conversationItem struct {
	conv  model.Conversation
	draft bool
}

// FilterValue implements list.Item.
func (i conversationItem) FilterValue() string {
	if i.draft {
		return draftLabel
	}
	return i.conv.GetTitle()
}

// id returns the selection this row stands for.
func (i conversationItem) id() model.ConversationID {
	if i.draft {
		return model.Draft
	}
	return model.Persisted(i.conv.ID)
}

// sidebarItems builds the rows: the draft first when it is active, then the
// conversations in store order.
func sidebarItems(convs []model.Conversation, active model.ConversationID) []list.Item {
	items := make([]list.Item, 0, len(convs)+1)
	if active.IsDraft() {
		items = append(items, conversationItem{draft: true})
	}
	for _, c := range convs {
		items = append(items, conversationItem{conv: c})
	}
	return items
}

// indexOfSelection returns the row of active, or -1.
func indexOfSelection(items []list.Item, active model.ConversationID) int {
	for i, it := range items {
		ci, ok := it.(conversationItem)
		if !ok {
			continue
		}
		if ci.draft && active.IsDraft() {
			return i
		}
		if !ci.draft && active.Is(ci.conv.ID) {
			return i
		}
	}
	return -1
}

// =============================================================================
// DELEGATE
// =============================================================================

// itemDelegate renders a two-line sidebar row: title, then last activity.
type itemDelegate struct {
	theme  *styles.Theme
	active func() model.ConversationID
	now    func() time.Time
}

func (d itemDelegate) Height() int                         { return 2 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

// Render implements list.ItemDelegate.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(conversationItem)
	if !ok {
		return
	}

	// 2 columns of padding from the item styles, 2 for the marker.
	width := m.Width() - 4
	if width < 4 {
		width = 4
	}

	marker := "  "
	if !it.draft && d.active().Is(it.conv.ID) {
		marker = "* "
	}

	title := it.FilterValue()
	meta := ""
	if !it.draft {
		meta = formatTimestamp(it.conv.RecencyTime(), d.now())
	}
	title = util.PadWidth(util.TruncateWidth(util.SingleLine(title), width), width)
	meta = util.PadWidth(util.TruncateWidth(meta, width), width)

	style := d.theme.SidebarItem
	switch {
	case index == m.Index():
		style = d.theme.SidebarItemSelected
	case it.draft:
		style = d.theme.SidebarDraft
	case marker != "  ":
		style = d.theme.SidebarItemActive
	}

	fmt.Fprintf(w, "%s\n%s",
		style.Render(marker+title),
		d.theme.SidebarItem.Render("  "+d.theme.SidebarMeta.Render(meta)))
}
