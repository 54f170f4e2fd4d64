// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal presents an already complete reply as if it were arriving
// incrementally.
//
// The Animator emits growing prefixes of a string on a fixed tick cadence and
// calls a completion callback once the whole string has been shown. It knows
// nothing about conversations or messages: callers pass callbacks and route
// TickMsg values back through Update from their Bubble Tea loop.
//
// # Usage
//
//	a := reveal.New(3, 20*time.Millisecond)
//	cmd := a.Start(reply,
//	    func(prefix string) { partial = prefix },
//	    func(full string) { commit(full) },
//	)
//
// In Update:
//
//	case reveal.TickMsg:
//	    return m, a.Update(msg)
package reveal
