// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar             lipgloss.Style
	SidebarFocused      lipgloss.Style
	SidebarHeader       lipgloss.Style
	SidebarItem         lipgloss.Style
	SidebarItemSelected lipgloss.Style
	SidebarItemActive   lipgloss.Style
	SidebarDraft        lipgloss.Style
	SidebarMeta         lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	Transcript     lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	PendingText    lipgloss.Style
	EmptyState     lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputBox        lipgloss.Style
	InputBoxFocused lipgloss.Style

	// ==========================================================================
	// STATUS BAR, TOASTS AND DIALOGS
	// ==========================================================================

	StatusBar   lipgloss.Style
	StatusBrand lipgloss.Style
	StatusText  lipgloss.Style
	Toast       lipgloss.Style
	Notice      lipgloss.Style
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style
	Hint        lipgloss.Style
}

// NewTheme creates a theme for mode (auto, dark or light). Auto asks the
// terminal for its background color. The choice is applied to lipgloss so
// adaptive colors resolve consistently.
func NewTheme(mode string) *Theme {
	t := &Theme{
		IsDark:       resolveDark(mode),
		ColorProfile: termenv.ColorProfile(),
	}
	lipgloss.SetHasDarkBackground(t.IsDark)
	t.initStyles()
	return t
}

func resolveDark(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeDark:
		return true
	case ModeLight:
		return false
	default:
		return termenv.HasDarkBackground()
	}
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim)

	t.SidebarFocused = t.Sidebar.Copy().
		BorderForeground(Cyan)

	t.SidebarHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		Padding(0, 1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.SidebarItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		Padding(0, 1)

	t.SidebarItemActive = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		Padding(0, 1)

	t.SidebarDraft = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true).
		Padding(0, 1)

	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Transcript
	t.Transcript = lipgloss.NewStyle().
		Padding(0, 1)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserText = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.AssistantText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.PendingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(2)

	t.EmptyState = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Padding(1, 2)

	// Input
	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim)

	t.InputBoxFocused = t.InputBox.Copy().
		BorderForeground(Cyan)

	// Status bar and overlays
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim)

	t.StatusBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.StatusText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.Toast = lipgloss.NewStyle().
		Foreground(Rose).
		Background(RoseDeep).
		Bold(true).
		Padding(0, 1)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald).
		Padding(0, 1)

	t.Dialog = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.DialogTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, sidebar hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
