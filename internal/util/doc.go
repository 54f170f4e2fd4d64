// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatdesk.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadWidth: terminal cell aware truncation and padding
//   - SingleLine: whitespace collapsing for one-line previews
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - EnsurePrivateFile: 0600 permission repair for secret-bearing files
//
// # Usage
//
//	title := util.TruncateWidth(conv.Title, sidebarWidth-4)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
