// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatdesk.
//
// Supports both TOML and JSON configuration formats, with built-in defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - APIConfig: backend URL, timeout and client-side rate limit
//   - RevealConfig: typing effect pacing
//   - ServerConfig: development backend settings
//   - Watcher: reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATDESK_*), including those from ./.env
//   - ~/.chatdesk/config.toml
//   - ~/.chatdesk/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.NewClient(cfg.API.BaseURL).WithTimeout(cfg.Timeout())
package config
