// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/store"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultSidebarWidth is used when Options.SidebarWidth is zero.
	DefaultSidebarWidth = 30

	// MinSidebarWidth is the narrowest sidebar drawn.
	MinSidebarWidth = 16

	// inputLines is the height of the message editor.
	inputLines = 3

	// MaxInputLength caps the editor, matching the backend's message limit.
	MaxInputLength = 32000

	// MaxTitleLength caps the rename field.
	MaxTitleLength = 200
)

// mode is the interaction mode of the chat view.
type mode int

const (
	modeNormal mode = iota
	modeRename
	modeConfirmDelete
)

// focus is the pane receiving keys in normal mode.
type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// =============================================================================
// MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	// Markdown renders assistant replies through glamour.
	Markdown bool
	// Theme is auto, dark or light.
	Theme        string
	SidebarWidth int
	// UserName is shown in the status bar.
	UserName string
	// Now is the clock for timestamps; tests replace it.
	Now func() time.Time
}

// Model is the Bubble Tea model of the chat screen. All conversation state
// lives in the store; the model owns only presentation state.
type Model struct {
	store *store.Store
	theme *styles.Theme
	keys  KeyMap
	opts  Options

	sidebar    list.Model
	transcript viewport.Model
	input      textarea.Model
	rename     textinput.Model
	spinner    spinner.Model
	help       help.Model
	markdown   *markdownRenderer

	mode         mode
	focus        focus
	renameTarget string
	notice       string
	lastActive   model.ConversationID
	authErr      *store.OpError

	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates the chat view over s.
func New(s *store.Store, opts Options) Model {
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = DefaultSidebarWidth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	theme := styles.NewTheme(opts.Theme)
	keys := DefaultKeyMap()

	delegate := itemDelegate{theme: theme, active: s.Active, now: opts.Now}
	sidebar := list.New(nil, delegate, opts.SidebarWidth, 10)
	sidebar.SetShowTitle(false)
	sidebar.SetShowStatusBar(false)
	sidebar.SetShowHelp(false)
	sidebar.SetFilteringEnabled(false)
	sidebar.DisableQuitKeybindings()

	input := textarea.New()
	input.Placeholder = "Ask anything. Enter sends, Ctrl+J adds a line."
	input.ShowLineNumbers = false
	input.Prompt = ""
	input.CharLimit = MaxInputLength
	input.SetHeight(inputLines)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j", "alt+enter"))
	input.Focus()

	rename := textinput.New()
	rename.Prompt = "> "
	rename.CharLimit = MaxTitleLength

	sp := spinner.New(spinner.WithSpinner(styles.LineSpinner.Spinner()))

	m := Model{
		store:      s,
		theme:      theme,
		keys:       keys,
		opts:       opts,
		sidebar:    sidebar,
		transcript: viewport.New(80, 20),
		input:      input,
		rename:     rename,
		spinner:    sp,
		help:       help.New(),
		lastActive: s.Active(),
	}
	if opts.Markdown {
		m.markdown = newMarkdownRenderer(theme.GlamourStyle())
	}
	return m
}

// AuthErr returns the error that ended the session, or nil when the user quit.
func (m Model) AuthErr() *store.OpError {
	return m.authErr
}

// Init loads the conversation list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.store.Load(), textarea.Blink, m.spinner.Tick)
}

// =============================================================================
// LAYOUT
// =============================================================================

// sidebarWidth returns the outer sidebar width, 0 when hidden.
func (m *Model) sidebarWidth() int {
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return 0
	}
	w := m.opts.SidebarWidth
	if w < MinSidebarWidth {
		w = MinSidebarWidth
	}
	if limit := m.width / 2; w > limit {
		w = limit
	}
	return w
}

func (m *Model) mainWidth() int {
	return m.width - m.sidebarWidth()
}

// layout sizes every component for the current window.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)

	const statusH, toastH = 1, 1
	inputH := inputLines + 2
	bodyH := m.height - statusH
	if bodyH < 1 {
		bodyH = 1
	}

	if sw := m.sidebarWidth(); sw > 0 {
		// border (2 rows) and the header row
		m.sidebar.SetSize(sw-2, max(bodyH-3, 1))
	}

	mainW := m.mainWidth()
	m.input.SetWidth(max(mainW-2, 1))
	m.rename.Width = max(mainW-6, 1)
	m.help.Width = m.width

	m.transcript.Width = mainW
	m.transcript.Height = max(bodyH-toastH-inputH, 1)
}

// =============================================================================
// SYNC WITH STORE
// =============================================================================

// refresh rebuilds the sidebar rows and transcript from the store.
func (m *Model) refresh() {
	active := m.store.Active()
	items := sidebarItems(m.store.Conversations(), active)
	m.sidebar.SetItems(items)

	switched := active != m.lastActive
	if switched || m.focus != focusSidebar {
		if i := indexOfSelection(items, active); i >= 0 {
			m.sidebar.Select(i)
		}
	}
	m.lastActive = active

	follow := m.transcript.AtBottom() || switched
	m.transcript.SetContent(m.renderTranscript())
	if follow {
		m.transcript.GotoBottom()
	}
}

func (m *Model) focusInput() tea.Cmd {
	m.focus = focusInput
	return m.input.Focus()
}

func (m *Model) focusSidebar() {
	m.focus = focusSidebar
	m.input.Blur()
}
