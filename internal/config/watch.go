// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultWatchDebounce coalesces the burst of events an editor save produces.
const DefaultWatchDebounce = 200 * time.Millisecond

// =============================================================================
// FILE WATCHER
// =============================================================================

// Watcher reloads a config file when it changes on disk.
//
// The parent directory is watched rather than the file, because atomic
// writes replace the file with a rename and a file watch would be lost.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher watches path. The directory containing path must exist.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve config path")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	return &Watcher{path: abs, watcher: fw, debounce: debounce}, nil
}

// Run delivers every successfully reloaded config to onChange until ctx is
// done or the watcher is closed. Invalid files are logged and skipped so a
// half-edited file never reaches the caller.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")

		case <-timer.C:
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				log.Warn().Err(err).Str("path", w.path).Msg("ignoring config change")
				continue
			}
			log.Info().Str("path", w.path).Msg("config reloaded")
			onChange(cfg)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
