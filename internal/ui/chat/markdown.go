// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
)

// maxRenderCache bounds the number of cached assistant renders.
const maxRenderCache = 512

// markdownRenderer renders committed assistant replies through glamour.
// Output is cached per message id and dropped when the width changes.
type markdownRenderer struct {
	style string
	width int
	r     *glamour.TermRenderer
	cache map[string]string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style, cache: make(map[string]string)}
}

// render returns content rendered at width. It falls back to wrapped plain
// text if glamour fails.
func (m *markdownRenderer) render(id, content string, width int) string {
	if width < 10 {
		width = 10
	}
	if m.r == nil || width != m.width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Debug().Err(err).Msg("markdown renderer unavailable")
			return wrapText(content, width)
		}
		m.r, m.width = r, width
		m.cache = make(map[string]string)
	}

	if out, ok := m.cache[id]; ok && id != "" {
		return out
	}

	out, err := m.r.Render(content)
	if err != nil {
		log.Debug().Err(err).Str("message", id).Msg("markdown render failed")
		return wrapText(content, width)
	}
	out = strings.Trim(out, "\n")

	if id != "" {
		if len(m.cache) >= maxRenderCache {
			m.cache = make(map[string]string)
		}
		m.cache[id] = out
	}
	return out
}
