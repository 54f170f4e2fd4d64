// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"
)

// JSONExporter exports transcripts as JSON. The output always holds the full
// transcript so it can be read back; options only add the export stamp.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	*Transcript
	ExportedAt time.Time `json:"exportedAt"`
	Generator  string    `json:"generator"`
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(jsonDocument{
		Transcript: t,
		ExportedAt: e.options.now().UTC(),
		Generator:  generator,
	}, "", "  ")
}

func (e *JSONExporter) FileExtension() string { return ".json" }

func (e *JSONExporter) MimeType() string { return "application/json" }
