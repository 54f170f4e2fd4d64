// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme_ExplicitModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	if !dark.IsDark {
		t.Error("NewTheme(dark) should be dark")
	}
	if dark.GlamourStyle() != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", dark.GlamourStyle())
	}

	light := NewTheme("  LIGHT ")
	if light.IsDark {
		t.Error("NewTheme(light) should not be dark")
	}
	if light.GlamourStyle() != "light" {
		t.Errorf("GlamourStyle() = %q, want light", light.GlamourStyle())
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme(ModeDark)

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Sidebar", theme.Sidebar},
		{"SidebarItemSelected", theme.SidebarItemSelected},
		{"UserLabel", theme.UserLabel},
		{"AssistantLabel", theme.AssistantLabel},
		{"InputBox", theme.InputBox},
		{"StatusBar", theme.StatusBar},
		{"Toast", theme.Toast},
		{"Dialog", theme.Dialog},
	}

	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style should render its content", s.name)
		}
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	theme := NewTheme(ModeDark)
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tt.width, got, tt.want)
		}
	}
}

// =============================================================================
// INDICATOR AND SPINNER TESTS
// =============================================================================

func TestRenderHelpersIncludeIndicators(t *testing.T) {
	if got := RenderError("boom"); !strings.Contains(got, StatusIndicators.Error) || !strings.Contains(got, "boom") {
		t.Errorf("RenderError() = %q", got)
	}
	if got := RenderSuccess("done"); !strings.Contains(got, StatusIndicators.Success) {
		t.Errorf("RenderSuccess() = %q", got)
	}
	if got := RenderWarning("careful"); !strings.Contains(got, StatusIndicators.Warning) {
		t.Errorf("RenderWarning() = %q", got)
	}
}

func TestSpinnerConfig(t *testing.T) {
	if got := LineSpinner.Duration(); got != 100*time.Millisecond {
		t.Errorf("LineSpinner.Duration() = %v, want 100ms", got)
	}
	if got := (SpinnerConfig{}).Duration(); got != time.Second {
		t.Errorf("zero FPS Duration() = %v, want 1s", got)
	}

	s := DotsSpinner.Spinner()
	if len(s.Frames) != len(DotsSpinner.Frames) {
		t.Errorf("Spinner() frames = %d, want %d", len(s.Frames), len(DotsSpinner.Frames))
	}
	if s.FPS != DotsSpinner.Duration() {
		t.Errorf("Spinner() FPS = %v, want %v", s.FPS, DotsSpinner.Duration())
	}
}
