// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Inspect and edit the configuration file.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/config"
)

// secretKeys are never printed by `config get`.
var secretKeys = map[string]bool{
	"server.jwt_secret": true,
	"server.openai_key": true,
}

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Example: `  chatdesk config show
  chatdesk config get api.base_url
  chatdesk config set reveal.interval_ms 30`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (secrets redacted)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(app.Out, app.Config.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one setting",
			Args:  requireArgs(1, "chatdesk config get KEY"),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := app.Config.Get(args[0])
				if err != nil {
					return NewValidationError("key", args[0], err.Error())
				}
				if secretKeys[args[0]] && fmt.Sprint(value) != "" {
					value = "[REDACTED]"
				}
				if items, ok := value.([]string); ok {
					value = strings.Join(items, ",")
				}
				fmt.Fprintln(app.Out, value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one setting in the config file",
			Args:  requireArgs(2, "chatdesk config set KEY VALUE"),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := app.configFilePath()
				if err != nil {
					return err
				}
				if err := setConfigValue(path, args[0], args[1]); err != nil {
					return err
				}
				printSuccess(app.Out, "%s updated in %s", args[0], path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every setting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, key := range config.Keys() {
					fmt.Fprintln(app.Out, key)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := app.configFilePath()
				if err != nil {
					return err
				}
				fmt.Fprintln(app.Out, path)
				return nil
			},
		},
	)
	return cmd
}

// configFilePath is the file `config set` edits.
func (a *App) configFilePath() (string, error) {
	if a.ConfigPath != "" {
		return a.ConfigPath, nil
	}
	return config.PathTOML()
}

// setConfigValue edits the file at path. It starts from the file alone, not
// the effective configuration, so environment overrides are never written back.
func setConfigValue(path, key, value string) error {
	isJSON := strings.HasSuffix(path, ".json")

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		load := config.LoadTOML
		if isJSON {
			load = config.LoadJSON
		}
		if err := load(cfg, path); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return NewValidationError("key", key, err.Error())
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "refusing to save invalid config")
	}

	if isJSON {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}
