// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// FORMATTING UTILITIES
// =============================================================================

// formatTimestamp formats a timestamp relative to now:
//   - Today: just time (e.g., "15:04")
//   - This week: day and time (e.g., "Mon 15:04")
//   - Older: date (e.g., "Jan 2 2006")
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())

	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour && now.After(t) {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 2006")
}

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// calculateContentWidth returns totalWidth minus margin, never below 3.
func calculateContentWidth(totalWidth, margin int) int {
	contentWidth := totalWidth - margin
	if contentWidth < 3 {
		contentWidth = 3
	}
	return contentWidth
}

// wrapText wraps text to maxWidth display cells. Existing line breaks are
// kept and long lines break at the last space that fits.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}

		runes := []rune(line)
		for runewidth.StringWidth(string(runes)) > maxWidth {
			// Longest prefix that fits.
			fit, w := 0, 0
			for fit < len(runes) {
				rw := runewidth.RuneWidth(runes[fit])
				if w+rw > maxWidth {
					break
				}
				w += rw
				fit++
			}
			if fit == 0 {
				fit = 1
			}

			breakPoint := fit
			for j := fit; j > 0; j-- {
				if j < len(runes) && runes[j] == ' ' {
					breakPoint = j
					break
				}
			}

			result.WriteString(string(runes[:breakPoint]))
			result.WriteString("\n")
			runes = []rune(strings.TrimLeft(string(runes[breakPoint:]), " "))
		}
		result.WriteString(string(runes))
	}

	return result.String()
}
