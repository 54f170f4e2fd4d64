// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth.go - login, register, logout and whoami commands.
package cli

import (
	"bufio"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/server"
)

type credentialFlags struct {
	name          string
	email         string
	passwordStdin bool
}

func (f *credentialFlags) bind(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&f.name, "name", "", "display name")
	}
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "read the password from stdin")
}

// =============================================================================
// LOGIN
// =============================================================================

func newLoginCommand(app *App) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Example: `  chatdesk login
  chatdesk login --email ada@example.com
  echo "$PASSWORD" | chatdesk login --email ada@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := collectCredentials(cmd, app, &flags)
			if err != nil {
				return err
			}

			c := app.client()
			resp, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					return errors.New("invalid email or password")
				}
				return errors.Wrap(err, "login failed")
			}
			if err := app.saveSession(c, resp); err != nil {
				return err
			}
			printSuccess(app.Out, "Logged in as %s", describeUser(resp.User))
			return nil
		},
	}
	flags.bind(cmd, false)
	return cmd
}

// =============================================================================
// REGISTER
// =============================================================================

func newRegisterCommand(app *App) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(flags.name)
			if name == "" && !flags.passwordStdin {
				var err error
				if name, err = app.Prompter.Prompt("Name: "); err != nil {
					return err
				}
			}
			if name == "" {
				return NewValidationError("name", "", "must not be empty")
			}

			email, password, err := collectCredentials(cmd, app, &flags)
			if err != nil {
				return err
			}
			if !flags.passwordStdin {
				confirm, err := app.Prompter.Password("Confirm password: ")
				if err != nil {
					return err
				}
				if confirm != password {
					return NewValidationError("password", "", "passwords do not match")
				}
			}

			c := app.client()
			resp, err := c.Register(cmd.Context(), name, email, password)
			if err != nil {
				return errors.Wrap(err, "registration failed")
			}
			if err := app.saveSession(c, resp); err != nil {
				return err
			}
			printSuccess(app.Out, "Registered and logged in as %s", describeUser(resp.User))
			if resp.User.IsAdmin {
				printHint(app.Out, "This account is an administrator.")
			}
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

// =============================================================================
// LOGOUT / WHOAMI
// =============================================================================

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Sessions.Clear(); err != nil {
				return err
			}
			printSuccess(app.Out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, creds, err := app.authedClient()
			if err != nil {
				return err
			}
			user, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			printField(app.Out, "Name", user.Name)
			printField(app.Out, "Email", user.Email)
			printField(app.Out, "Admin", user.IsAdmin)
			printField(app.Out, "Backend", c.BaseURL())
			if exp, ok := creds.ExpiresAt(); ok {
				printField(app.Out, "Expires", exp.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// collectCredentials reads the email and password from flags, stdin or prompts.
func collectCredentials(cmd *cobra.Command, app *App, flags *credentialFlags) (email, password string, err error) {
	email = strings.TrimSpace(flags.email)
	if email == "" {
		if flags.passwordStdin {
			return "", "", NewValidationError("email", "", "--email is required with --password-stdin")
		}
		if email, err = app.Prompter.Prompt("Email: "); err != nil {
			return "", "", err
		}
	}
	if email, err = validateEmail(email); err != nil {
		return "", "", err
	}

	if flags.passwordStdin {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if scanner.Scan() {
			password = strings.TrimRight(scanner.Text(), "\r\n")
		}
		if err := scanner.Err(); err != nil {
			return "", "", errors.Wrap(err, "failed to read password from stdin")
		}
	} else if password, err = app.Prompter.Password("Password: "); err != nil {
		return "", "", err
	}
	if err := validatePassword(password); err != nil {
		return "", "", err
	}
	return email, password, nil
}

func validateEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", NewValidationError("email", email, "not a valid address")
	}
	return strings.ToLower(addr.Address), nil
}

func validatePassword(password string) error {
	if len([]rune(password)) < server.MinPasswordLength {
		return NewValidationError("password", "", fmt.Sprintf("must be at least %d characters", server.MinPasswordLength))
	}
	return nil
}

func describeUser(u api.User) string {
	if u.Name == "" {
		return u.Email
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}
