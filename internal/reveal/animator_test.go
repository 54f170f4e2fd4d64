// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// drive executes tick commands until the animator stops producing them.
func drive(t *testing.T, a *Animator, cmd tea.Cmd) int {
	t.Helper()
	ticks := 0
	for cmd != nil {
		msg := cmd()
		if _, ok := msg.(TickMsg); !ok {
			t.Fatalf("expected TickMsg, got %T", msg)
		}
		ticks++
		if ticks > 10000 {
			t.Fatal("animation did not terminate")
		}
		cmd = a.Update(msg)
	}
	return ticks
}

// =============================================================================
// MONOTONICITY TESTS
// =============================================================================

func TestAnimator_RevealMonotonic(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		chunk int
	}{
		{"exact multiple", "abcdef", 3},
		{"remainder", "abcdefg", 3},
		{"chunk larger than text", "hi", 10},
		{"single rune chunks", "hello", 1},
		{"unicode", "héllo wörld ✓", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := New(tc.chunk, time.Millisecond)
			var frames []string
			var done []string

			cmd := a.Start(tc.text,
				func(p string) { frames = append(frames, p) },
				func(full string) { done = append(done, full) },
			)
			ticks := drive(t, a, cmd)

			n := len([]rune(tc.text))
			want := (n + tc.chunk - 1) / tc.chunk
			if ticks != want {
				t.Errorf("ticks = %d, want %d", ticks, want)
			}
			if len(frames) != want {
				t.Fatalf("frames = %d, want %d", len(frames), want)
			}
			for i := 1; i < len(frames); i++ {
				if len([]rune(frames[i])) <= len([]rune(frames[i-1])) {
					t.Errorf("frame %d (%q) not longer than frame %d (%q)", i, frames[i], i-1, frames[i-1])
				}
				if !strings.HasPrefix(tc.text, frames[i]) {
					t.Errorf("frame %d (%q) is not a prefix", i, frames[i])
				}
			}
			if frames[len(frames)-1] != tc.text {
				t.Errorf("final frame = %q, want %q", frames[len(frames)-1], tc.text)
			}
			if len(done) != 1 || done[0] != tc.text {
				t.Errorf("onDone calls = %v, want exactly [%q]", done, tc.text)
			}
			if a.State() != StateCompleted {
				t.Errorf("state = %v, want completed", a.State())
			}
		})
	}
}

func TestAnimator_EmptyTextCompletesImmediately(t *testing.T) {
	a := New(3, time.Millisecond)
	calls := 0
	cmd := a.Start("", nil, func(full string) {
		calls++
		if full != "" {
			t.Errorf("full = %q, want empty", full)
		}
	})
	if cmd != nil {
		t.Error("empty text should not schedule ticks")
	}
	if calls != 1 {
		t.Errorf("onDone called %d times, want 1", calls)
	}
}

func TestFrames(t *testing.T) {
	got := Frames("SOLID is...", 4)
	want := []string{"SOLI", "SOLID is", "SOLID is..."}
	if len(got) != len(want) {
		t.Fatalf("Frames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, got[i], want[i])
		}
	}

	if len(Frames("", 3)) != 0 {
		t.Error("Frames of empty text should be empty")
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestAnimator_CancelIdempotent(t *testing.T) {
	a := New(2, time.Millisecond)
	doneCalls := 0
	cmd := a.Start("hello world", nil, func(string) { doneCalls++ })

	if !a.Cancel() {
		t.Error("first Cancel on a running animator should return true")
	}
	if a.Cancel() {
		t.Error("second Cancel should be a no-op")
	}
	if a.State() != StateCancelled {
		t.Errorf("state = %v, want cancelled", a.State())
	}

	// The tick that was already scheduled must be ignored.
	if next := a.Update(cmd()); next != nil {
		t.Error("stale tick after cancel should not schedule another")
	}
	if doneCalls != 0 {
		t.Errorf("onDone called %d times after cancel, want 0", doneCalls)
	}
}

func TestAnimator_CancelAfterCompletion(t *testing.T) {
	a := New(5, time.Millisecond)
	doneCalls := 0
	drive(t, a, a.Start("hello", nil, func(string) { doneCalls++ }))

	if a.Cancel() {
		t.Error("Cancel after completion should be a no-op")
	}
	if a.Cancel() {
		t.Error("repeated Cancel after completion should be a no-op")
	}
	if doneCalls != 1 {
		t.Errorf("onDone called %d times, want 1", doneCalls)
	}
	if a.State() != StateCompleted {
		t.Errorf("state = %v, want completed", a.State())
	}
}

func TestAnimator_CancelWhenIdle(t *testing.T) {
	a := New(1, time.Millisecond)
	if a.Cancel() {
		t.Error("Cancel on an idle animator should be a no-op")
	}
	if a.State() != StateIdle {
		t.Errorf("state = %v, want idle", a.State())
	}
}

func TestAnimator_RestartDropsOldTicks(t *testing.T) {
	a := New(1, time.Millisecond)
	var firstFrames, secondFrames []string

	oldCmd := a.Start("first", func(p string) { firstFrames = append(firstFrames, p) }, nil)
	newCmd := a.Start("second", func(p string) { secondFrames = append(secondFrames, p) }, nil)

	if next := a.Update(oldCmd()); next != nil {
		t.Error("tick from the previous run should be ignored")
	}
	if len(firstFrames) != 0 {
		t.Errorf("first run emitted %v after restart", firstFrames)
	}

	drive(t, a, newCmd)
	if len(secondFrames) != len("second") {
		t.Errorf("second run emitted %d frames, want %d", len(secondFrames), len("second"))
	}
}

func TestAnimator_IgnoresOtherAnimators(t *testing.T) {
	a := New(1, time.Millisecond)
	b := New(1, time.Millisecond)
	frames := 0

	a.Start("abc", func(string) { frames++ }, nil)
	bCmd := b.Start("xyz", nil, nil)

	if next := a.Update(bCmd()); next != nil {
		t.Error("tick for another animator should be ignored")
	}
	if frames != 0 {
		t.Errorf("frames = %d, want 0", frames)
	}
	if a.Update(struct{}{}) != nil {
		t.Error("non-tick messages should be ignored")
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(0, 0)
	if a.chunk != DefaultChunkSize {
		t.Errorf("chunk = %d, want %d", a.chunk, DefaultChunkSize)
	}
	if a.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", a.interval, DefaultInterval)
	}
	if a.ID() == New(0, 0).ID() {
		t.Error("animators should have unique ids")
	}
}

func TestAnimator_Progress(t *testing.T) {
	a := New(3, time.Millisecond)
	cmd := a.Start("abcdefg", nil, nil)

	if shown, total := a.Progress(); shown != 0 || total != 7 {
		t.Fatalf("Progress() = %d/%d before the first tick", shown, total)
	}
	cmd = a.Update(cmd())
	if shown, _ := a.Progress(); shown != 3 {
		t.Errorf("shown = %d after one tick, want 3", shown)
	}
	drive(t, a, cmd)
	if shown, total := a.Progress(); shown != total {
		t.Errorf("Progress() = %d/%d after completion", shown, total)
	}
}
