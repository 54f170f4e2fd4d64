// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - Command tree and shared state for the chatdesk CLI.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/session"
)

// Version information (overridden at build time with -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP
// =============================================================================

// App is the state shared by every command. Fields left nil are filled in
// from the environment before a command runs; tests preset them.
type App struct {
	Config     *config.Config
	ConfigPath string
	Sessions   *session.Store
	Prompter   Prompter

	Out io.Writer
	Err io.Writer

	// SkipLogging leaves the global logger alone.
	SkipLogging bool

	apiURL    string
	logLevel  string
	logCloser io.Closer
}

// NewApp returns an App writing to the process's stdout and stderr.
func NewApp() *App {
	return &App{Out: os.Stdout, Err: os.Stderr}
}

// setup loads configuration, the session store and the logger.
func (a *App) setup() error {
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}

	if a.Config == nil {
		var (
			cfg *config.Config
			err error
		)
		if a.ConfigPath != "" {
			cfg, err = config.LoadFromPath(a.ConfigPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.apiURL != "" {
		a.Config.API.BaseURL = a.apiURL
	}
	if a.logLevel != "" {
		a.Config.Log.Level = a.logLevel
	}

	if a.Sessions == nil {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		a.Sessions = session.NewStore(dir)
	}
	if a.Prompter == nil {
		a.Prompter = newTerminalPrompter(a.Out, "")
	}

	if a.SkipLogging {
		return nil
	}
	return a.initLogging("")
}

// initLogging points the global logger at file, or at stderr when file is empty.
func (a *App) initLogging(file string) error {
	closer, err := logging.Init(logging.Options{Level: a.Config.Log.Level, File: file})
	if err != nil {
		return err
	}
	a.closeLog()
	a.logCloser = closer
	return nil
}

func (a *App) closeLog() {
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

func (a *App) teardown() {
	if c, ok := a.Prompter.(io.Closer); ok {
		c.Close()
	}
	a.closeLog()
}

// client returns an unauthenticated backend client for the configured URL.
func (a *App) client() *api.Client {
	return api.NewClient(a.Config.API.BaseURL).
		WithTimeout(a.Config.Timeout()).
		WithRateLimit(a.Config.API.RateLimit, a.Config.API.Burst)
}

// authedClient returns a client carrying the saved session token.
func (a *App) authedClient() (*api.Client, *session.Credentials, error) {
	creds, err := a.Sessions.Load()
	if err != nil {
		return nil, nil, err
	}
	c := a.client()
	if creds.BaseURL != "" && creds.BaseURL != c.BaseURL() {
		return nil, nil, errors.Wrapf(session.ErrNoSession,
			"saved session is for %s, not %s", creds.BaseURL, c.BaseURL())
	}
	return c.WithToken(creds.Token), creds, nil
}

// saveSession persists a successful login or registration.
func (a *App) saveSession(c *api.Client, resp *api.AuthResponse) error {
	return a.Sessions.Save(&session.Credentials{
		Token:   resp.Token,
		User:    resp.User,
		BaseURL: c.BaseURL(),
		SavedAt: time.Now().UTC(),
	})
}

// =============================================================================
// COMMAND TREE
// =============================================================================

// NewRootCommand builds the chatdesk command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "chatdesk",
		Short: "Terminal client for the chatdesk assistant",
		Long: `chatdesk is a terminal client for a chatbot assistant backend.

Run it without arguments to open the chat interface. Log in first with
'chatdesk login', or start a local backend with 'chatdesk serve'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", "", "config file (default ~/.chatdesk/config.toml)")
	flags.StringVar(&app.apiURL, "api-url", "", "backend base URL, e.g. http://localhost:8080/api")
	flags.StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newTUICommand(app),
		newChatCommand(app),
		newAskCommand(app),
		newConversationsCommand(app),
		newExportCommand(app),
		newLoginCommand(app),
		newRegisterCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newFeedbackCommand(app),
		newAdminCommand(app),
		newServeCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	app := NewApp()
	root := NewRootCommand(app)
	if err := root.Execute(); err != nil {
		app.teardown()
		printError(app.Err, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// requireArgs wraps cobra.ExactArgs with a usage hint.
func requireArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return NewValidationError("arguments", "", fmt.Sprintf("usage: %s", usage))
		}
		return nil
	}
}
