// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/server"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// scriptedPrompter answers prompts from a fixed list, then reports EOF.
type scriptedPrompter struct {
	answers []string
	prompts []string
}

func (p *scriptedPrompter) next(label string) (string, error) {
	p.prompts = append(p.prompts, label)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *scriptedPrompter) Prompt(label string) (string, error)   { return p.next(label) }
func (p *scriptedPrompter) Password(label string) (string, error) { return p.next(label) }

type testEnv struct {
	ts       *httptest.Server
	baseURL  string
	prompter *scriptedPrompter
	out      *bytes.Buffer
	errOut   *bytes.Buffer
	app      *App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := server.OpenDB(filepath.Join(t.TempDir(), "chatdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	srv, err := server.New(db, server.Options{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		RateLimit:  1000,
		Burst:      1000,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	env := &testEnv{
		ts:       ts,
		baseURL:  ts.URL + "/api",
		prompter: &scriptedPrompter{},
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
	}
	env.app = env.newApp(t)
	return env
}

// newApp returns an App with its own session directory on the shared backend.
func (e *testEnv) newApp(t *testing.T) *App {
	cfg := config.Default()
	cfg.API.BaseURL = e.baseURL
	cfg.API.RateLimit = 0
	cfg.UI.Markdown = false
	return &App{
		Config:      cfg,
		Sessions:    session.NewStore(t.TempDir()),
		Prompter:    e.prompter,
		Out:         e.out,
		Err:         e.errOut,
		SkipLogging: true,
	}
}

// run executes one command line against app with stdin.
func (e *testEnv) run(app *App, stdin string, args ...string) error {
	e.out.Reset()
	e.errOut.Reset()
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(e.out)
	root.SetErr(e.errOut)
	return root.ExecuteContext(context.Background())
}

func (e *testEnv) register(t *testing.T, app *App, name, email string) {
	t.Helper()
	err := e.run(app, "password123\n", "register", "--name", name, "--email", email, "--password-stdin")
	require.NoError(t, err)
}

func (e *testEnv) apiClient(t *testing.T, app *App) *api.Client {
	t.Helper()
	creds, err := app.Sessions.Load()
	require.NoError(t, err)
	return api.NewClient(e.baseURL).WithRateLimit(0, 0).WithToken(creds.Token)
}

// =============================================================================
// AUTH COMMANDS
// =============================================================================

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	app := env.app

	env.register(t, app, "Ada", "ada@example.com")
	assert.Contains(t, env.out.String(), "Registered and logged in as Ada <ada@example.com>")
	assert.Contains(t, env.out.String(), "administrator")

	creds, err := app.Sessions.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, creds.Token)
	assert.Equal(t, env.baseURL, creds.BaseURL)
	assert.True(t, creds.User.IsAdmin)

	require.NoError(t, env.run(app, "", "logout"))
	assert.Contains(t, env.out.String(), "Logged out")
	_, err = app.Sessions.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)

	env.prompter.answers = []string{"ADA@example.com", "password123"}
	require.NoError(t, env.run(app, "", "login"))
	assert.Contains(t, env.out.String(), "Logged in as Ada <ada@example.com>")
	assert.Equal(t, []string{"Email: ", "Password: "}, env.prompter.prompts)

	_, err = app.Sessions.Load()
	assert.NoError(t, err)
}

func TestRegister_InteractiveConfirmMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.prompter.answers = []string{"Ada", "ada@example.com", "password123", "password124"}

	err := env.run(env.app, "", "register")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "password", vErr.Field)

	_, err = env.app.Sessions.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, env.app, "Ada", "ada@example.com")
	require.NoError(t, env.run(env.app, "", "logout"))

	err := env.run(env.app, "wrongpassword\n", "login", "--email", "ada@example.com", "--password-stdin")
	assert.EqualError(t, err, "invalid email or password")

	_, err = env.app.Sessions.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestCredentialValidation(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		field string
	}{
		{"bad email", "password123\n", []string{"login", "--email", "not-an-email", "--password-stdin"}, "email"},
		{"display name email", "password123\n", []string{"login", "--email", "Ada <ada@example.com>", "--password-stdin"}, "email"},
		{"short password", "short\n", []string{"login", "--email", "ada@example.com", "--password-stdin"}, "password"},
		{"missing email", "password123\n", []string{"login", "--password-stdin"}, "email"},
		{"missing name", "password123\n", []string{"register", "--email", "ada@example.com", "--password-stdin"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			err := env.run(env.app, tt.stdin, tt.args...)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, ExitUsageError, GetExitCode(err))
		})
	}
}

func TestWhoami(t *testing.T) {
	env := newTestEnv(t)

	err := env.run(env.app, "", "whoami")
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.NotEmpty(t, errorHint(err))

	env.register(t, env.app, "Ada", "ada@example.com")
	require.NoError(t, env.run(env.app, "", "whoami"))
	out := env.out.String()
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, env.baseURL)
	assert.Contains(t, out, "Expires")
}

func TestSessionForOtherBackend(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.app.Sessions.Save(&session.Credentials{
		Token:   "token",
		BaseURL: "http://elsewhere.example/api",
	}))

	err := env.run(env.app, "", "whoami")
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.Contains(t, err.Error(), "elsewhere.example")
}

func TestTUIRequiresTerminal(t *testing.T) {
	env := newTestEnv(t)
	err := env.run(env.app, "", "tui")
	var ttyErr *TTYRequiredError
	assert.True(t, errors.As(err, &ttyErr))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

func TestAsk(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, env.app, "Ada", "ada@example.com")

	require.NoError(t, env.run(env.app, "", "ask", "What", "is", "SOLID?"))
	assert.Contains(t, env.out.String(), "> What is SOLID?")
	assert.Contains(t, env.errOut.String(), "conversation ")

	list, err := env.apiClient(t, env.app).ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "What is SOLID?", list.Conversations[0].Title)

	convID := list.Conversations[0].ID
	require.NoError(t, env.run(env.app, "", "ask", "--conversation", convID, "And the L?"))
	assert.Contains(t, env.out.String(), "Message 2 in this conversation")

	require.NoError(t, env.run(env.app, "", "ask", "--conversation", "new", "Another topic"))
	list, err = env.apiClient(t, env.app).ListConversations(context.Background())
	require.NoError(t, err)
	assert.Len(t, list.Conversations, 2)
}

func TestAsk_NotLoggedIn(t *testing.T) {
	env := newTestEnv(t)
	err := env.run(env.app, "", "ask", "hello")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestChatLineMode(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, env.app, "Ada", "ada@example.com")

	env.prompter.answers = []string{"hello", "", "follow up", "/new", "fresh start"}
	env.prompter.prompts = nil
	require.NoError(t, env.run(env.app, "", "chat"))

	out := env.out.String()
	assert.Equal(t, 3, strings.Count(out, "assistant>"))
	assert.Contains(t, out, "Message 2 in this conversation")
	assert.Contains(t, out, "Started a new conversation.")
	assert.Contains(t, out, "3 message(s) sent")

	list, err := env.apiClient(t, env.app).ListConversations(context.Background())
	require.NoError(t, err)
	assert.Len(t, list.Conversations, 2)
}

func TestChatLineMode_Quit(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, env.app, "Ada", "ada@example.com")

	env.prompter.answers = []string{"/quit", "never sent"}
	require.NoError(t, env.run(env.app, "", "chat"))
	assert.NotContains(t, env.out.String(), "assistant>")
	assert.Equal(t, []string{"never sent"}, env.prompter.answers)
}

// =============================================================================
// FEEDBACK COMMANDS
// =============================================================================

func TestFeedbackAndAdminReview(t *testing.T) {
	env := newTestEnv(t)
	admin := env.app
	env.register(t, admin, "Ada", "ada@example.com")

	user := env.newApp(t)
	env.register(t, user, "Bob", "bob@example.com")

	require.NoError(t, env.run(user, "", "feedback", "--rating", "4", "--comment", "Nice answers"))
	assert.Contains(t, env.out.String(), "****.")

	env.prompter.answers = []string{"2", "Too slow"}
	require.NoError(t, env.run(user, "", "feedback"))

	err := env.run(user, "", "admin", "feedback")
	assert.ErrorIs(t, err, errAdminRequired)
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	require.NoError(t, env.run(admin, "", "admin", "feedback", "--json"))
	var items []api.Feedback
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Rating, "newest first")
	assert.Equal(t, "bob@example.com", items[0].UserEmail)
	assert.Equal(t, "Nice answers", items[1].Comment)

	require.NoError(t, env.run(admin, "", "admin", "feedback"))
	out := env.out.String()
	assert.Contains(t, out, "Feedback (2)")
	assert.Contains(t, out, "COMMENT")
	assert.Contains(t, out, "Too slow")
	assert.Contains(t, out, "Average rating: 3.0")

	require.NoError(t, env.run(admin, "", "admin", "feedback", "--json", "--limit", "1"))
	items = nil
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &items))
	assert.Len(t, items, 1)
}

func TestFeedbackValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, env.app, "Ada", "ada@example.com")

	tests := []struct {
		name    string
		args    []string
		answers []string
		field   string
	}{
		{"rating too high", []string{"feedback", "--rating", "9"}, nil, "rating"},
		{"rating zero", []string{"feedback", "--rating", "0"}, nil, "rating"},
		{"prompted rating not a number", []string{"feedback"}, []string{"great"}, "rating"},
		{"comment too long", []string{"feedback", "--rating", "3", "--comment", strings.Repeat("x", server.MaxCommentLength+1)}, nil, "comment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.prompter.answers = tt.answers
			err := env.run(env.app, "", tt.args...)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestFeedbackTable(t *testing.T) {
	items := []api.Feedback{
		{UserEmail: "ada@example.com", Rating: 5, Comment: "line one\nline two", ConversationID: "0123456789abcdef", CreatedAt: time.Now()},
		{UserEmail: "bob@example.com", Rating: 1},
	}
	out := feedbackTable(items, 80)
	assert.Contains(t, out, "DATE")
	assert.Contains(t, out, "line one line two")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "*....")
	assert.Equal(t, 3.0, averageRating(items))
	assert.Equal(t, 0.0, averageRating(nil))
}

func TestStars(t *testing.T) {
	assert.Equal(t, ".....", stars(0))
	assert.Equal(t, "***..", stars(3))
	assert.Equal(t, "*****", stars(7))
	assert.Equal(t, ".....", stars(-1))
}

// =============================================================================
// CONFIG / VERSION / SERVE
// =============================================================================

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, env.run(env.app, "", "--config", path, "config", "path"))
	assert.Equal(t, path, strings.TrimSpace(env.out.String()))

	require.NoError(t, env.run(env.app, "", "--config", path, "config", "set", "reveal.interval_ms", "30"))
	saved, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 30, saved.Reveal.IntervalMS)

	err = env.run(env.app, "", "--config", path, "config", "set", "reveal.interval_ms", "5000")
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	err = env.run(env.app, "", "--config", path, "config", "set", "nope.key", "1")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	require.NoError(t, env.run(env.app, "", "config", "get", "api.base_url"))
	assert.Equal(t, env.baseURL, strings.TrimSpace(env.out.String()))

	env.app.Config.Server.JWTSecret = "hunter2"
	require.NoError(t, env.run(env.app, "", "config", "get", "server.jwt_secret"))
	assert.Equal(t, "[REDACTED]", strings.TrimSpace(env.out.String()))

	require.NoError(t, env.run(env.app, "", "config", "show"))
	assert.NotContains(t, env.out.String(), "hunter2")

	require.NoError(t, env.run(env.app, "", "config", "keys"))
	assert.Contains(t, env.out.String(), "reveal.chunk_size")

	err = env.run(env.app, "", "config", "get")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run(env.app, "", "version", "--json"))
	var info VersionInfo
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.Platform)
}

func TestDatabasePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)

	got, err := databasePath("chatdesk.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "chatdesk.db"), got)

	abs := filepath.Join(t.TempDir(), "other.db")
	got, err = databasePath(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	got, err = databasePath(":memory:")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", got)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("email", "x", "bad"), ExitUsageError},
		{"no session", errors.Wrap(session.ErrNoSession, "load"), ExitAuthError},
		{"expired", session.ErrExpired, ExitAuthError},
		{"unauthorized", errors.Wrap(api.ErrUnauthorized, "401"), ExitAuthError},
		{"server error", errors.Wrap(&api.APIError{Status: 500}, "POST /chat"), ExitGeneralError},
		{"unavailable", errors.Wrap(api.ErrUnavailable, "dial"), ExitNetworkError},
		{"not found", errors.Wrap(api.ErrNotFound, "404"), ExitNotFoundError},
		{"config", errors.Wrap(config.ValidateErrors{{Field: "x", Message: "y"}}, "invalid config"), ExitConfigError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.Wrap(api.ErrUnavailable, "GET /conversations"))
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "chatdesk serve")

	buf.Reset()
	printError(&buf, errors.Wrap(&api.APIError{Status: 500, Message: "database is locked"}, "POST /chat"))
	assert.Contains(t, buf.String(), "HTTP 500")
	assert.Contains(t, buf.String(), "Check its log")
}

func TestConversationFlag(t *testing.T) {
	assert.Nil(t, conversationFlag(""))
	assert.Nil(t, conversationFlag("new"))
	got := conversationFlag(" 3f2c ")
	require.NotNil(t, got)
	assert.Equal(t, "3f2c", *got)
}

func TestTypeOut(t *testing.T) {
	var buf bytes.Buffer
	typeOut(context.Background(), &buf, "héllo wörld", 3, 0)
	assert.Equal(t, "héllo wörld\n", buf.String())

	// A cancelled context flushes the remainder instead of waiting.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf.Reset()
	typeOut(ctx, &buf, "abcdefgh", 2, time.Hour)
	assert.Equal(t, "abcdefgh\n", buf.String())
}

// =============================================================================
// CONVERSATIONS / EXPORT
// =============================================================================

func TestConversationsAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, env.app, "Ada", "ada@example.com")

	require.NoError(t, env.run(env.app, "", "conversations"))
	assert.Contains(t, env.out.String(), "No conversations yet")

	err := env.run(env.app, "", "export")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))

	require.NoError(t, env.run(env.app, "", "ask", "First question"))
	require.NoError(t, env.run(env.app, "", "ask", "Second question"))

	require.NoError(t, env.run(env.app, "", "ls"))
	out := env.out.String()
	assert.Contains(t, out, "TITLE")
	assert.Less(t, strings.Index(out, "Second question"), strings.Index(out, "First question"))

	require.NoError(t, env.run(env.app, "", "export", "--stdout"))
	md := env.out.String()
	assert.Contains(t, md, "# Second question")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "### Assistant")

	dir := t.TempDir()
	require.NoError(t, env.run(env.app, "", "export", "--format", "json", "--output", dir))
	assert.Contains(t, env.out.String(), "Exported \"Second question\" (2 messages)")
	matches, err := filepath.Glob(filepath.Join(dir, "conversation_Second_question_*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	err = env.run(env.app, "", "export", "missing-id")
	assert.True(t, errors.As(err, &vErr))

	err = env.run(env.app, "", "export", "--format", "html")
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, "format", vErr.Field)
}
