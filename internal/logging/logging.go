// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// The terminal UI owns stdout and stderr while it runs, so the TUI logs to a
// file. CLI commands and the development server log to a console writer.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger setup.
type Options struct {
	// Level is a zerolog level name: debug, info, warn, error. Default: info.
	Level string
	// File receives JSON log lines. Empty means console output on stderr.
	File string
}

// Init replaces the global logger. The returned closer releases the log
// file, if one was opened.
func Init(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	if opts.File == "" {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
		})).With().Timestamp().Logger().Level(level)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger().Level(level)
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel converts a level name, defaulting to info when empty.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", name)
	}
	return level, nil
}

// Debug starts a debug-level event on the global logger.
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info starts an info-level event on the global logger.
func Info() *zerolog.Event {
	return log.Info()
}

// Warn starts a warn-level event on the global logger.
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error starts an error-level event on the global logger.
func Error() *zerolog.Event {
	return log.Error()
}
