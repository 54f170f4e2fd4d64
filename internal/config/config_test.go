// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// isolate points the chatdesk directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	for _, key := range []string{"API_URL", "API_TIMEOUT_SECS", "API_RATE_LIMIT", "REVEAL_CHUNK_SIZE", "REVEAL_INTERVAL_MS", "MARKDOWN", "LOG_LEVEL", "JWT_SECRET"} {
		name := EnvPrefix + "_" + key
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return dir
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Reveal.ChunkSize != 3 || cfg.Reveal.IntervalMS != 20 {
		t.Errorf("reveal defaults = %d/%d, want 3/20", cfg.Reveal.ChunkSize, cfg.Reveal.IntervalMS)
	}
}

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, Default().API.BaseURL)
	}
}

func TestSaveAndLoad_TOML(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.API.BaseURL = "https://chat.example.com/api"
	cfg.Reveal.ChunkSize = 5
	cfg.UI.Markdown = false
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "config.toml")
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config mode = %o, want 0600", perm)
		}
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.API.BaseURL != "https://chat.example.com/api" {
		t.Errorf("API.BaseURL = %q", loaded.API.BaseURL)
	}
	if loaded.Reveal.ChunkSize != 5 {
		t.Errorf("Reveal.ChunkSize = %d, want 5", loaded.Reveal.ChunkSize)
	}
	if loaded.UI.Markdown {
		t.Error("UI.Markdown = true, want false")
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.UI.SidebarWidth = 40
	if err := SaveJSON(cfg, filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.UI.SidebarWidth != 40 {
		t.Errorf("UI.SidebarWidth = %d, want 40", loaded.UI.SidebarWidth)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[reveal]\nchunk_size = 7\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Reveal.ChunkSize != 7 {
		t.Errorf("Reveal.ChunkSize = %d, want 7", cfg.Reveal.ChunkSize)
	}
	if cfg.Reveal.IntervalMS != 20 {
		t.Errorf("Reveal.IntervalMS = %d, want default 20", cfg.Reveal.IntervalMS)
	}
	if !cfg.UI.Markdown {
		t.Error("UI.Markdown should keep its default")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[reveal]\nchunk_size = 0\ninterval_ms = 5000\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load()
	if err == nil {
		t.Fatal("Load() = nil, want validation error")
	}

	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Load() error = %T, want ValidateErrors", err)
	}
	if len(verrs) != 1 || verrs[0].Field != "reveal.interval_ms" {
		t.Errorf("ValidateErrors = %v, want one reveal.interval_ms error", verrs)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CHATDESK_API_URL", "http://backend:9000/api")
	t.Setenv("CHATDESK_REVEAL_CHUNK_SIZE", "8")
	t.Setenv("CHATDESK_MARKDOWN", "false")
	t.Setenv("CHATDESK_JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://backend:9000/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Reveal.ChunkSize != 8 {
		t.Errorf("Reveal.ChunkSize = %d, want 8", cfg.Reveal.ChunkSize)
	}
	if cfg.UI.Markdown {
		t.Error("UI.Markdown = true, want false")
	}
	if cfg.Server.JWTSecret != "s3cret" {
		t.Errorf("Server.JWTSecret = %q", cfg.Server.JWTSecret)
	}
}

func TestApplyEnvOverrides_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("CHATDESK_REVEAL_CHUNK_SIZE", "many")

	if _, err := Load(); err == nil {
		t.Error("Load() = nil, want error for non-numeric chunk size")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.API.BaseURL = "localhost:8080" }, "api.base_url"},
		{"ftp url", func(c *Config) { c.API.BaseURL = "ftp://host/api" }, "api.base_url"},
		{"timeout", func(c *Config) { c.API.TimeoutSecs = 0 }, "api.timeout_secs"},
		{"negative rate", func(c *Config) { c.API.RateLimit = -1 }, "api.rate_limit"},
		{"chunk", func(c *Config) { c.Reveal.ChunkSize = -2 }, "reveal.chunk_size"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"sidebar", func(c *Config) { c.UI.SidebarWidth = 4 }, "ui.sidebar_width"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate() = %q, want mention of %s", err, tt.field)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	sets := []struct{ key, value string }{
		{"reveal.chunk_size", "4"},
		{"ui.markdown", "false"},
		{"api.rate_limit", "2.5"},
		{"server.cors_origins", "http://a, http://b"},
	}
	for _, s := range sets {
		if err := cfg.Set(s.key, s.value); err != nil {
			t.Fatalf("Set(%q, %q) error = %v", s.key, s.value, err)
		}
	}

	v, err := cfg.Get("reveal.chunk_size")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != 4 {
		t.Errorf("Get(reveal.chunk_size) = %v, want 4", v)
	}
	if cfg.UI.Markdown {
		t.Error("UI.Markdown = true, want false")
	}
	if cfg.API.RateLimit != 2.5 {
		t.Errorf("API.RateLimit = %v, want 2.5", cfg.API.RateLimit)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "http://a|http://b" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}

	if err := cfg.Set("reveal.chunk_size", "x"); err == nil {
		t.Error("Set(reveal.chunk_size, x) should fail")
	}
	if err := cfg.Set("nope.key", "1"); err == nil {
		t.Error("Set(nope.key) should fail")
	}
	if _, err := cfg.Get("reveal"); err == nil {
		t.Error("Get(reveal) should fail for a section")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	cfg := Default()
	found := false
	for _, k := range keys {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%q) = %v", k, err)
		}
		found = found || k == "api.base_url"
	}
	if !found {
		t.Error("Keys() missing api.base_url")
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Server.JWTSecret = "jwt-secret-value"
	cfg.Server.OpenAIKey = "sk-live-value"

	s := cfg.String()
	for _, secret := range []string{"jwt-secret-value", "sk-live-value"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaks %q", secret)
		}
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark redacted fields")
	}
	if cfg.Server.JWTSecret != "jwt-secret-value" {
		t.Error("String() must not mutate the config")
	}
}
