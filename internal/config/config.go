// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/jeranaias/chatdesk/internal/util"
)

// EnvPrefix prefixes every environment override, e.g. CHATDESK_API_URL.
const EnvPrefix = "CHATDESK"

// HomeEnv relocates the chatdesk directory (default ~/.chatdesk).
const HomeEnv = "CHATDESK_HOME"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatdesk configuration.
type Config struct {
	API    APIConfig    `toml:"api" json:"api"`
	Reveal RevealConfig `toml:"reveal" json:"reveal"`
	UI     UIConfig     `toml:"ui" json:"ui"`
	Log    LogConfig    `toml:"log" json:"log"`
	Server ServerConfig `toml:"server" json:"server"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	// BaseURL is the backend root, e.g. http://localhost:8080/api
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds each request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RateLimit is the sustained requests per second (0 disables limiting).
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	Burst     int     `toml:"burst" json:"burst"`
}

// RevealConfig paces the typing effect for assistant replies.
type RevealConfig struct {
	ChunkSize  int `toml:"chunk_size" json:"chunk_size"`
	IntervalMS int `toml:"interval_ms" json:"interval_ms"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Markdown renders assistant replies through glamour.
	Markdown bool `toml:"markdown" json:"markdown"`
	// Theme is "auto", "dark" or "light".
	Theme        string `toml:"theme" json:"theme"`
	SidebarWidth int    `toml:"sidebar_width" json:"sidebar_width"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	// File is where the TUI logs; empty means ~/.chatdesk/chatdesk.log.
	File string `toml:"file" json:"file"`
}

// ServerConfig configures the development backend.
type ServerConfig struct {
	Addr        string `toml:"addr" json:"addr"`
	Database    string `toml:"database" json:"database"`
	JWTSecret   string `toml:"jwt_secret" json:"jwt_secret"`
	TokenTTLHrs int    `toml:"token_ttl_hours" json:"token_ttl_hours"`
	OpenAIKey   string `toml:"openai_key" json:"openai_key"`
	OpenAIModel string `toml:"openai_model" json:"openai_model"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "http://localhost:8080/api",
			TimeoutSecs: 60,
			RateLimit:   10,
			Burst:       5,
		},
		Reveal: RevealConfig{
			ChunkSize:  3,
			IntervalMS: 20,
		},
		UI: UIConfig{
			Markdown:     true,
			Theme:        "auto",
			SidebarWidth: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			Database:    "chatdesk.db",
			TokenTTLHrs: 24,
			OpenAIModel: "gpt-4o-mini",
		},
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.Burst == 0 {
		c.API.Burst = d.API.Burst
	}

	if c.Reveal.ChunkSize == 0 {
		c.Reveal.ChunkSize = d.Reveal.ChunkSize
	}
	if c.Reveal.IntervalMS == 0 {
		c.Reveal.IntervalMS = d.Reveal.IntervalMS
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.Database == "" {
		c.Server.Database = d.Server.Database
	}
	if c.Server.TokenTTLHrs == 0 {
		c.Server.TokenTTLHrs = d.Server.TokenTTLHrs
	}
	if c.Server.OpenAIModel == "" {
		c.Server.OpenAIModel = d.Server.OpenAIModel
	}
}

// Timeout returns the API timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// RevealInterval returns the reveal tick interval as a duration.
func (c *Config) RevealInterval() time.Duration {
	return time.Duration(c.Reveal.IntervalMS) * time.Millisecond
}

// TokenTTL returns the development backend's token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Server.TokenTTLHrs) * time.Hour
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the chatdesk directory, ~/.chatdesk unless CHATDESK_HOME is set.
func Dir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".chatdesk"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the log file path, honoring Log.File.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatdesk.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads configuration. Precedence, highest first:
//   - CHATDESK_* environment variables (a .env file in the working directory is loaded first)
//   - ~/.chatdesk/config.toml
//   - ~/.chatdesk/config.json
//   - built-in defaults
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load(".env")

	cfg := Default()

	tomlPath, err := PathTOML()
	if err != nil {
		return nil, err
	}
	jsonPath, err := PathJSON()
	if err != nil {
		return nil, err
	}

	switch {
	case fileExists(tomlPath):
		if err := LoadTOML(cfg, tomlPath); err != nil {
			return nil, err
		}
	case fileExists(jsonPath):
		if err := LoadJSON(cfg, jsonPath); err != nil {
			return nil, err
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file path.
// Files ending in .json are decoded as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, err
		}
	} else if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := util.EnsurePrivateFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return errors.Wrapf(err, "failed to decode TOML config %s", path)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := util.EnsurePrivateFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read JSON config %s", path)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "failed to decode JSON config %s", path)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML file.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML.
// SECURITY: Written 0600 (owner read/write only); the file may hold secrets.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatdesk configuration file\n")
	buf.WriteString("# Environment variables (CHATDESK_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// SaveJSON writes cfg as indented JSON.
// SECURITY: Written 0600 (owner read/write only); the file may hold secrets.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// envOverrides binds CHATDESK_* variables. Unset variables leave the zero
// value, which means "no override".
type envOverrides struct {
	APIURL           string  `envconfig:"API_URL"`
	APITimeoutSecs   int     `envconfig:"API_TIMEOUT_SECS"`
	APIRateLimit     float64 `envconfig:"API_RATE_LIMIT"`
	RevealChunkSize  int     `envconfig:"REVEAL_CHUNK_SIZE"`
	RevealIntervalMS int     `envconfig:"REVEAL_INTERVAL_MS"`
	Markdown         string  `envconfig:"MARKDOWN"`
	Theme            string  `envconfig:"THEME"`
	LogLevel         string  `envconfig:"LOG_LEVEL"`
	LogFile          string  `envconfig:"LOG_FILE"`
	ServerAddr       string  `envconfig:"SERVER_ADDR"`
	Database         string  `envconfig:"DATABASE"`
	JWTSecret        string  `envconfig:"JWT_SECRET"`
	OpenAIKey        string  `envconfig:"OPENAI_KEY"`
	OpenAIModel      string  `envconfig:"OPENAI_MODEL"`
}

// ApplyEnvOverrides applies CHATDESK_* environment variables:
//   - CHATDESK_API_URL, CHATDESK_API_TIMEOUT_SECS, CHATDESK_API_RATE_LIMIT
//   - CHATDESK_REVEAL_CHUNK_SIZE, CHATDESK_REVEAL_INTERVAL_MS
//   - CHATDESK_MARKDOWN ("true"/"false"), CHATDESK_THEME
//   - CHATDESK_LOG_LEVEL, CHATDESK_LOG_FILE
//   - CHATDESK_SERVER_ADDR, CHATDESK_DATABASE, CHATDESK_JWT_SECRET
//   - CHATDESK_OPENAI_KEY, CHATDESK_OPENAI_MODEL
func (c *Config) ApplyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return errors.Wrap(err, "invalid environment override")
	}

	if env.APIURL != "" {
		c.API.BaseURL = env.APIURL
	}
	if env.APITimeoutSecs != 0 {
		c.API.TimeoutSecs = env.APITimeoutSecs
	}
	if env.APIRateLimit != 0 {
		c.API.RateLimit = env.APIRateLimit
	}
	if env.RevealChunkSize != 0 {
		c.Reveal.ChunkSize = env.RevealChunkSize
	}
	if env.RevealIntervalMS != 0 {
		c.Reveal.IntervalMS = env.RevealIntervalMS
	}
	if env.Markdown != "" {
		v, err := strconv.ParseBool(env.Markdown)
		if err != nil {
			return errors.Errorf("invalid %s_MARKDOWN %q", EnvPrefix, env.Markdown)
		}
		c.UI.Markdown = v
	}
	if env.Theme != "" {
		c.UI.Theme = env.Theme
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFile != "" {
		c.Log.File = env.LogFile
	}
	if env.ServerAddr != "" {
		c.Server.Addr = env.ServerAddr
	}
	if env.Database != "" {
		c.Server.Database = env.Database
	}
	if env.JWTSecret != "" {
		c.Server.JWTSecret = env.JWTSecret
	}
	if env.OpenAIKey != "" {
		c.Server.OpenAIKey = env.OpenAIKey
	}
	if env.OpenAIModel != "" {
		c.Server.OpenAIModel = env.OpenAIModel
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", c.API.BaseURL),
		})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit", Message: "must not be negative"})
	}
	if c.API.Burst < 0 {
		errs = append(errs, ValidationError{Field: "api.burst", Message: "must not be negative"})
	}

	if c.Reveal.ChunkSize < 1 || c.Reveal.ChunkSize > 1000 {
		errs = append(errs, ValidationError{
			Field:   "reveal.chunk_size",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Reveal.ChunkSize),
		})
	}
	if c.Reveal.IntervalMS < 1 || c.Reveal.IntervalMS > 1000 {
		errs = append(errs, ValidationError{
			Field:   "reveal.interval_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Reveal.IntervalMS),
		})
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.SidebarWidth < 16 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("must be between 16 and 80, got %d", c.UI.SidebarWidth),
		})
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	if c.Server.TokenTTLHrs < 1 {
		errs = append(errs, ValidationError{Field: "server.token_ttl_hours", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key path, e.g. "reveal.chunk_size".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value given as a string by its TOML key path.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Errorf("%s: expected integer, got %q", key, value)
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.Errorf("%s: expected number, got %q", key, value)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Errorf("%s: expected true or false, got %q", key, value)
		}
		field.SetBool(b)
	case reflect.Slice:
		var items []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return errors.Errorf("%s: unsupported type %s", key, field.Kind())
	}
	return nil
}

// lookup walks the struct by toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, errors.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, errors.Errorf("%s is a section, not a key", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, errors.Errorf("%s is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, errors.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Keys lists every settable key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, section.Tag.Get("toml")+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// =============================================================================
// REDACTION
// =============================================================================

// String returns the config as JSON with secrets redacted.
// SECURITY: never print or log the raw struct.
func (c *Config) String() string {
	safe := *c
	safe.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	if safe.Server.JWTSecret != "" {
		safe.Server.JWTSecret = "[REDACTED]"
	}
	if safe.Server.OpenAIKey != "" {
		safe.Server.OpenAIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
