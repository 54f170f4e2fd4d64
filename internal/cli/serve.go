// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/server"
)

// shutdownTimeout bounds graceful shutdown of the development backend.
const shutdownTimeout = 10 * time.Second

func newServeCommand(app *App) *cobra.Command {
	var addr, database string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend",
		Long: `Run a local backend implementing the chat REST API.

Replies echo the user's message unless server.openai_key is set, in which
case they come from the configured OpenAI model. The first account
registered becomes the administrator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				app.Config.Server.Addr = addr
			}
			if database != "" {
				app.Config.Server.Database = database
			}
			path, err := databasePath(app.Config.Server.Database)
			if err != nil {
				return err
			}

			db, err := server.OpenDB(path)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			srv, err := server.New(db, server.OptionsFromConfig(app.Config))
			if err != nil {
				return err
			}
			logging.Info().Str("database", path).Msg("database ready")
			printSuccess(app.Out, "Serving on http://%s/api (Ctrl+C to stop)", app.Config.Server.Addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return errors.Wrap(err, "server failed")
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "shutdown failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVar(&database, "db", "", "SQLite database file (default server.database)")
	return cmd
}

// databasePath resolves relative database paths against the chatdesk directory.
func databasePath(name string) (string, error) {
	if name == ":memory:" || filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.Wrap(err, "create data directory")
	}
	return filepath.Join(dir, name), nil
}
