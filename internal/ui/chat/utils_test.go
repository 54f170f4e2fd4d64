// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// FORMATTING UTILITIES TESTS
// =============================================================================

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 5, 15, 30, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"today", now.Add(-2 * time.Hour), "13:30"},
		{"this week", now.AddDate(0, 0, -2), "Mon 15:30"},
		{"older", now.AddDate(0, -1, 0), "May 5 2024"},
		{"future is dated", now.AddDate(0, 0, 2), "Jun 7 2024"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatTimestamp(tc.t, now); got != tc.want {
				t.Errorf("formatTimestamp() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCalculateContentWidth(t *testing.T) {
	tests := []struct {
		total, margin, want int
	}{
		{80, 4, 76},
		{5, 4, 3},
		{0, 2, 3},
	}
	for _, tc := range tests {
		if got := calculateContentWidth(tc.total, tc.margin); got != tc.want {
			t.Errorf("calculateContentWidth(%d, %d) = %d, want %d", tc.total, tc.margin, got, tc.want)
		}
	}
}

// =============================================================================
// TEXT UTILITIES TESTS
// =============================================================================

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "hello world", 20, "hello world"},
		{"breaks at space", "hello world again", 11, "hello world\nagain"},
		{"keeps newlines", "a\nb", 10, "a\nb"},
		{"hard break", "abcdefghij", 4, "abcd\nefgh\nij"},
		{"zero width passthrough", "abc", 0, "abc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := wrapText(tc.text, tc.width); got != tc.want {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
			}
		})
	}
}

func TestWrapText_WideRunes(t *testing.T) {
	text := strings.Repeat("漢", 10)
	got := wrapText(text, 6)
	for _, line := range strings.Split(got, "\n") {
		if w := runewidth.StringWidth(line); w > 6 {
			t.Errorf("line %q has width %d, want <= 6", line, w)
		}
	}
	if strings.ReplaceAll(got, "\n", "") != text {
		t.Errorf("wrapText lost content: %q", got)
	}
}
