// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal presents an already complete reply as if it were arriving
// incrementally.
package reveal

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Defaults used when New receives non-positive values.
const (
	DefaultChunkSize = 3
	DefaultInterval  = 20 * time.Millisecond
)

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of an Animator.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TickMsg advances a running animation by one chunk.
// id and run tie the tick to one Start call; anything else is ignored.
type TickMsg struct {
	Time time.Time
	id   int
	run  int
}

// =============================================================================
// ANIMATOR
// =============================================================================

// Animator reveals a string chunk by chunk.
//
// It is driven from a single Bubble Tea Update loop and is not safe for
// concurrent use. Cancelling bumps the run counter so a tick already in
// flight is dropped when it arrives, which is the Bubble Tea equivalent of
// clearing a pending timer.
type Animator struct {
	id       int
	run      int
	state    State
	chunk    int
	interval time.Duration

	text []rune
	pos  int

	onFrame func(prefix string)
	onDone  func(full string)
}

// New creates an idle animator revealing chunk runes every interval.
func New(chunk int, interval time.Duration) *Animator {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Animator{
		id:       nextID(),
		chunk:    chunk,
		interval: interval,
	}
}

// ID returns the animator's unique identifier.
func (a *Animator) ID() int {
	return a.id
}

// State returns the current lifecycle state.
func (a *Animator) State() State {
	return a.state
}

// Running reports whether ticks are being produced.
func (a *Animator) Running() bool {
	return a.state == StateRunning
}

// Start begins revealing text, discarding any previous run.
// onFrame receives every prefix; onDone receives the full text exactly once
// when the last prefix has been emitted. Either callback may be nil.
// Empty text completes immediately and returns nil.
func (a *Animator) Start(text string, onFrame, onDone func(string)) tea.Cmd {
	a.run++
	a.text = []rune(text)
	a.pos = 0
	a.onFrame = onFrame
	a.onDone = onDone
	a.state = StateRunning

	if len(a.text) == 0 {
		a.complete()
		return nil
	}
	return a.tick()
}

// Update handles a TickMsg. Ticks for another animator, an older run, or a
// run that is no longer active are ignored.
func (a *Animator) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(TickMsg)
	if !ok || tick.id != a.id || tick.run != a.run || a.state != StateRunning {
		return nil
	}

	a.pos += a.chunk
	if a.pos > len(a.text) {
		a.pos = len(a.text)
	}
	if a.onFrame != nil {
		a.onFrame(string(a.text[:a.pos]))
	}

	if a.pos == len(a.text) {
		a.complete()
		return nil
	}
	return a.tick()
}

// Cancel stops a running animation. It returns true if a run was stopped.
// Calling it when idle, completed or already cancelled is a no-op.
func (a *Animator) Cancel() bool {
	if a.state != StateRunning {
		return false
	}
	a.run++
	a.state = StateCancelled
	a.onFrame = nil
	a.onDone = nil
	return true
}

// Progress returns the emitted and total rune counts of the current run.
func (a *Animator) Progress() (shown, total int) {
	return a.pos, len(a.text)
}

func (a *Animator) complete() {
	a.state = StateCompleted
	done := a.onDone
	full := string(a.text)
	a.onFrame = nil
	a.onDone = nil
	if done != nil {
		done(full)
	}
}

// tick schedules the next TickMsg for the current run.
func (a *Animator) tick() tea.Cmd {
	id, run := a.id, a.run
	return tea.Tick(a.interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t, id: id, run: run}
	})
}

// =============================================================================
// FRAME SEQUENCE
// =============================================================================

// Frames returns the prefixes an Animator with the given chunk size would
// emit for text, in order. The result has ceil(N/chunk) entries and the last
// one equals text.
func Frames(text string, chunk int) []string {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	runes := []rune(text)
	frames := make([]string, 0, (len(runes)+chunk-1)/chunk)
	for pos := chunk; ; pos += chunk {
		if pos >= len(runes) {
			if len(runes) > 0 {
				frames = append(frames, text)
			}
			return frames
		}
		frames = append(frames, string(runes[:pos]))
	}
}
