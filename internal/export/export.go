// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/util"
)

// ErrEmptyTranscript is returned for conversations without messages.
var ErrEmptyTranscript = errors.New("conversation has no messages")

// Transcript is one conversation with its messages in display order.
type Transcript struct {
	Conversation model.Conversation `json:"conversation"`
	Messages     []model.Message    `json:"messages"`
}

func (t *Transcript) validate() error {
	if t == nil {
		return errors.New("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type for the format.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts format names and common aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", errors.Errorf("unsupported format %q (use markdown or json)", name)
}

// New returns the exporter for format.
func New(format Format, opts *Options) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	}
	return nil, errors.Errorf("unsupported format %q", format)
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files are saved. Default: "."
	OutputDir string

	// IncludeMetadata adds a front matter block and a summary section.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool

	// Now stamps the export; tests replace it.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Now:               time.Now,
	}
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes t to a new file in opts.OutputDir and returns its path.
// Files are written 0600 since transcripts are private.
func ExportToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", errors.Wrap(err, "export failed")
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create output directory")
	}

	filename := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(t.Conversation.Title),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0600); err != nil {
		return "", errors.Wrap(err, "write file")
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
