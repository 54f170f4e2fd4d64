// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Interactive input with line editing and hidden passwords.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts a prompt with Ctrl+C.
var ErrCancelled = errors.New("cancelled")

// Prompter reads answers from the user.
type Prompter interface {
	// Prompt reads one line with editing support.
	Prompt(label string) (string, error)
	// Password reads one line without echo.
	Password(label string) (string, error)
}

// terminalPrompter prompts on the controlling terminal. One liner state is
// shared by every prompt so history survives between them.
type terminalPrompter struct {
	out         io.Writer
	line        *liner.State
	historyPath string
}

func newTerminalPrompter(out io.Writer, historyPath string) *terminalPrompter {
	return &terminalPrompter{out: out, historyPath: historyPath}
}

func (p *terminalPrompter) state() *liner.State {
	if p.line != nil {
		return p.line
	}
	p.line = liner.NewLiner()
	p.line.SetCtrlCAborts(true)
	if p.historyPath != "" {
		if f, err := os.Open(p.historyPath); err == nil {
			p.line.ReadHistory(f)
			f.Close()
		}
	}
	return p.line
}

func (p *terminalPrompter) Prompt(label string) (string, error) {
	input, err := p.state().Prompt(label)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	input = strings.TrimSpace(input)
	if input != "" && p.historyPath != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

func (p *terminalPrompter) Password(label string) (string, error) {
	if err := RequiresTTY("read a password"); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}
	return strings.TrimSpace(string(secret)), nil
}

// Close saves history and restores the terminal.
func (p *terminalPrompter) Close() error {
	if p.line == nil {
		return nil
	}
	if p.historyPath != "" {
		if f, err := os.OpenFile(p.historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			p.line.WriteHistory(f)
			f.Close()
		}
	}
	err := p.line.Close()
	p.line = nil
	return err
}
