// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for chatdesk commands.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set;
// FORCE_COLOR turns them back on.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")). // Cyan
			MarginBottom(1)

	// LabelStyle is used for field labels in key/value listings.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for hints and secondary information.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	// AssistantStyle labels assistant replies in line mode.
	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")). // Purple
			Bold(true)

	// TableHeaderStyle and TableCellStyle render the feedback review table.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(0, 1)

	TableCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	TableBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("[OK]"), fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("[!]"), fmt.Sprintf(format, args...))
}

func printHint(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf(format, args...)))
}

// printField renders an aligned "label value" line.
func printField(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%s %s\n", LabelStyle.Render(label+":"), ValueStyle.Render(fmt.Sprint(value)))
}

// printError renders err the way Execute reports failures.
func printError(w io.Writer, err error) {
	msg := err.Error()
	if hint := errorHint(err); hint != "" {
		msg += "\n" + DimStyle.Render(hint)
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), strings.TrimSpace(msg))
}
