// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts to files.
//
// Formats:
//
//   - Markdown: human-readable, with optional YAML front matter
//   - JSON: the full transcript, readable by other tools
//
// Usage:
//
//	exp, _ := export.New(export.FormatMarkdown, export.DefaultOptions())
//	path, err := export.ExportToFile(&export.Transcript{
//	    Conversation: conv,
//	    Messages:     msgs,
//	}, exp, opts)
package export
