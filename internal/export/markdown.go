// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/chatdesk/internal/model"
)

const generator = "chatdesk"

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown. Message content is already
// Markdown and is written unchanged.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	conv := t.Conversation
	title := conv.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled conversation"
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		fmt.Fprintf(&sb, "id: %s\n", conv.ID)
		if !conv.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", conv.CreatedAt.Format(time.RFC3339))
		}
		if !conv.UpdatedAt.IsZero() {
			fmt.Fprintf(&sb, "updated: %s\n", conv.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		fmt.Fprintf(&sb, "generator: %s\n", generator)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	for i, msg := range t.Messages {
		label := roleLabel(msg.Sender)
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")
		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "---\n\n*Exported from %s on %s*\n", generator, formatTimestamp(e.options.now()))
	}
	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) FileExtension() string { return ".md" }

func (e *MarkdownExporter) MimeType() string { return "text/markdown" }

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func roleLabel(s model.Sender) string {
	if s == "" {
		return "Unknown"
	}
	return s.DisplayName()
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeYAML quotes values containing YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
