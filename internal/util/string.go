// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: Rune-aware truncation preserves multi-byte characters.

// Ellipsis is appended to truncated display strings.
const Ellipsis = "..."

// TruncateRunes truncates a string to a maximum number of runes.
// If the string is truncated, "..." is appended within the limit.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= len(Ellipsis) {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-len(Ellipsis)]) + Ellipsis
}

// TruncateWidth truncates a string to a maximum terminal cell width.
// Wide characters (CJK, emoji) count as two cells.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// PadWidth right-pads s with spaces to width cells, truncating if longer.
func PadWidth(s string, width int) string {
	s = TruncateWidth(s, width)
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// StringWidth returns the terminal cell width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// SingleLine collapses all whitespace runs, including newlines, to one space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
