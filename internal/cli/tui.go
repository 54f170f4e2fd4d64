// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/store"
	"github.com/jeranaias/chatdesk/internal/ui/chat"
)

func newTUICommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the chat interface (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

// runTUI runs the full-screen client until the user quits.
func runTUI(cmd *cobra.Command, app *App) error {
	if !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "open the chat interface"}
	}

	c, creds, err := app.authedClient()
	if err != nil {
		return err
	}

	// The program owns the terminal; logs go to a file from here on.
	if !app.SkipLogging {
		path, err := app.Config.LogPath()
		if err != nil {
			return err
		}
		if err := app.initLogging(path); err != nil {
			return err
		}
	}

	s := store.New(c, store.Options{
		Timeout:        app.Config.Timeout(),
		RevealChunk:    app.Config.Reveal.ChunkSize,
		RevealInterval: app.Config.RevealInterval(),
	})
	m := chat.New(s, chat.Options{
		Markdown:     app.Config.UI.Markdown,
		Theme:        app.Config.UI.Theme,
		SidebarWidth: app.Config.UI.SidebarWidth,
		UserName:     creds.User.Name,
	})

	logging.Info().Str("backend", c.BaseURL()).Msg("starting chat interface")
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	watchSettings(ctx, app, p)

	final, err := p.Run()
	if err != nil {
		return errors.Wrap(err, "chat interface failed")
	}

	// A rejected token ends the UI with the store already cleared.
	if fm, ok := final.(chat.Model); ok {
		if opErr := fm.AuthErr(); opErr != nil {
			printWarning(app.Err, "%s", opErr.Message())
			printHint(app.Err, "Run `chatdesk login` if your session expired.")
		}
	}
	return nil
}

// watchSettings forwards display settings from the config file to p while
// the program runs. A file that cannot be watched only loses live reload.
func watchSettings(ctx context.Context, app *App, p *tea.Program) {
	path, err := app.configFilePath()
	if err != nil {
		logging.Debug().Err(err).Msg("config reload disabled")
		return
	}
	w, err := config.NewWatcher(path, 0)
	if err != nil {
		logging.Debug().Err(err).Msg("config reload disabled")
		return
	}
	go func() {
		defer w.Close()
		w.Run(ctx, func(cfg *config.Config) {
			p.Send(chat.SettingsMsg{
				Markdown:     cfg.UI.Markdown,
				Theme:        cfg.UI.Theme,
				SidebarWidth: cfg.UI.SidebarWidth,
			})
		})
	}()
}
