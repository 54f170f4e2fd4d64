// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/store"
)

// =============================================================================
// HELPERS
// =============================================================================

// steppingClock advances one second per reading.
type steppingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type failingResponder struct{}

func (failingResponder) Name() string { return "failing" }
func (failingResponder) Reply(context.Context, []model.Message) (string, error) {
	return "", errors.New("upstream down")
}

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "chatdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := &steppingClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts := Options{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		RateLimit:  1000,
		Burst:      1000,
		Now:        clock.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}

	srv, err := New(db, opts)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts}
}

func (e *testEnv) client() *api.Client {
	return api.NewClient(e.ts.URL + "/api").WithRateLimit(0, 0)
}

// register creates an account and returns a client authenticated as it.
func (e *testEnv) register(t *testing.T, name, email string) (*api.Client, api.User) {
	t.Helper()
	resp, err := e.client().Register(context.Background(), name, email, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	return e.client().WithToken(resp.Token), resp.User
}

// =============================================================================
// AUTH
// =============================================================================

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.register(t, "Alice", "alice@example.com")
	_, bob := env.register(t, "Bob", "bob@example.com")

	assert.True(t, alice.IsAdmin)
	assert.False(t, bob.IsAdmin)
	assert.NotEqual(t, alice.ID, bob.ID)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		status   int
	}{
		{"invalid email", "not-an-email", "password123", http.StatusBadRequest},
		{"short password", "carol@example.com", "short", http.StatusBadRequest},
		{"duplicate email", "ALICE@example.com", "password123", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client().Register(ctx, "X", tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.status, api.StatusCode(err))
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	resp, err := env.client().Login(ctx, "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	me, err := env.client().WithToken(resp.Token).Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, me.ID)

	_, err = env.client().Login(ctx, "alice@example.com", "wrong-password")
	assert.True(t, errors.Is(err, api.ErrUnauthorized))

	_, err = env.client().Login(ctx, "nobody@example.com", "password123")
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client().ListConversations(ctx)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))

	_, err = env.client().WithToken("garbage").ListConversations(ctx)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))

	other, err := NewTokenManager("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue("someone")
	require.NoError(t, err)
	_, err = env.client().WithToken(forged).ListConversations(ctx)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
}

func TestTokenManager_Expiry(t *testing.T) {
	tm, err := NewTokenManager("secret", time.Minute)
	require.NoError(t, err)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, err := tm.Issue("user-1")
	require.NoError(t, err)

	sub, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.Validate(token)
	assert.Error(t, err)
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_CreatesConversation(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	resp, err := c.SendChat(ctx, "  What is SOLID?  ", nil)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, resp.ConversationID, resp.UserMessage.ConversationID)
	assert.Equal(t, "What is SOLID?", resp.UserMessage.Content)
	assert.Equal(t, model.SenderAssistant, resp.AssistantMessage.Sender)
	assert.Contains(t, resp.AssistantMessage.Content, "What is SOLID?")
	assert.True(t, resp.AssistantMessage.CreatedAt.After(resp.UserMessage.CreatedAt))

	list, err := c.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, model.DefaultTitle("What is SOLID?"), list.Conversations[0].Title)

	id := resp.ConversationID
	second, err := c.SendChat(ctx, "Give an example", &id)
	require.NoError(t, err)
	assert.Equal(t, id, second.ConversationID)

	msgs, err := c.ListMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{
		resp.UserMessage.ID, resp.AssistantMessage.ID,
		second.UserMessage.ID, second.AssistantMessage.ID,
	}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID, msgs[3].ID})
}

func TestChat_Validation(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	_, err := c.SendChat(ctx, "   ", nil)
	assert.True(t, errors.Is(err, api.ErrBadRequest))

	missing := "does-not-exist"
	_, err = c.SendChat(ctx, "hi", &missing)
	assert.True(t, errors.Is(err, api.ErrNotFound))

	_, err = c.SendChat(ctx, strings.Repeat("x", MaxMessageLength+1), nil)
	assert.True(t, errors.Is(err, api.ErrBadRequest))
}

func TestChat_ResponderFailureStoresNothing(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Responder = failingResponder{} })
	c, _ := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	_, err := c.SendChat(ctx, "hello", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, api.StatusCode(err))

	list, err := c.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Conversations)
}

func TestConversations_RecencyOrder(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	a, err := c.SendChat(ctx, "first", nil)
	require.NoError(t, err)
	b, err := c.SendChat(ctx, "second", nil)
	require.NoError(t, err)

	list, err := c.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list.Conversations, 2)
	assert.Equal(t, b.ConversationID, list.Conversations[0].ID)

	_, err = c.SendChat(ctx, "again", &a.ConversationID)
	require.NoError(t, err)

	list, err = c.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ConversationID, list.Conversations[0].ID)
}

// =============================================================================
// RENAME / DELETE
// =============================================================================

func TestRename(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	a, err := c.SendChat(ctx, "first", nil)
	require.NoError(t, err)
	b, err := c.SendChat(ctx, "second", nil)
	require.NoError(t, err)

	conv, err := c.RenameConversation(ctx, a.ConversationID, "  Design notes ")
	require.NoError(t, err)
	assert.Equal(t, "Design notes", conv.Title)

	_, err = c.RenameConversation(ctx, a.ConversationID, "   ")
	assert.True(t, errors.Is(err, api.ErrBadRequest))

	list, err := c.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list.Conversations, 2)
	assert.Equal(t, b.ConversationID, list.Conversations[0].ID, "rename must not reorder")
	assert.Equal(t, "Design notes", list.Conversations[1].Title)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	resp, err := c.SendChat(ctx, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, c.DeleteConversation(ctx, resp.ConversationID))

	list, err := c.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Conversations)

	_, err = c.ListMessages(ctx, resp.ConversationID)
	assert.True(t, errors.Is(err, api.ErrNotFound))

	err = c.DeleteConversation(ctx, resp.ConversationID)
	assert.True(t, errors.Is(err, api.ErrNotFound))
}

func TestOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.register(t, "Alice", "alice@example.com")
	bob, _ := env.register(t, "Bob", "bob@example.com")
	ctx := context.Background()

	resp, err := alice.SendChat(ctx, "private", nil)
	require.NoError(t, err)
	id := resp.ConversationID

	_, err = bob.ListMessages(ctx, id)
	assert.True(t, errors.Is(err, api.ErrForbidden))
	_, err = bob.RenameConversation(ctx, id, "mine")
	assert.True(t, errors.Is(err, api.ErrForbidden))
	err = bob.DeleteConversation(ctx, id)
	assert.True(t, errors.Is(err, api.ErrForbidden))
	_, err = bob.SendChat(ctx, "hijack", &id)
	assert.True(t, errors.Is(err, api.ErrForbidden))

	list, err := bob.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Conversations)

	msgs, err := alice.ListMessages(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

// =============================================================================
// FEEDBACK
// =============================================================================

func TestFeedback(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.register(t, "Alice", "alice@example.com")
	bob, _ := env.register(t, "Bob", "bob@example.com")
	ctx := context.Background()

	chat, err := bob.SendChat(ctx, "hello", nil)
	require.NoError(t, err)

	fb, err := bob.SubmitFeedback(ctx, api.Feedback{Rating: 5, Comment: " great ", ConversationID: chat.ConversationID})
	require.NoError(t, err)
	assert.NotEmpty(t, fb.ID)
	assert.Equal(t, "great", fb.Comment)

	_, err = bob.SubmitFeedback(ctx, api.Feedback{Rating: 0})
	assert.True(t, errors.Is(err, api.ErrBadRequest))

	_, err = admin.SubmitFeedback(ctx, api.Feedback{Rating: 3, ConversationID: chat.ConversationID})
	assert.True(t, errors.Is(err, api.ErrForbidden))

	_, err = bob.ListFeedback(ctx)
	assert.True(t, errors.Is(err, api.ErrForbidden))

	all, err := admin.ListFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bob@example.com", all[0].UserEmail)
	assert.Equal(t, 5, all[0].Rating)
}

// =============================================================================
// STORE OVER HTTP
// =============================================================================

func TestStore_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.register(t, "Alice", "alice@example.com")

	s := store.New(c, store.Options{RevealChunk: 50, RevealInterval: time.Millisecond})
	defer s.Close()

	run := func(cmd tea.Cmd) {
		queue := []tea.Cmd{cmd}
		for steps := 0; len(queue) > 0; steps++ {
			require.Less(t, steps, 10000, "commands did not settle")
			next := queue[0]
			queue = queue[1:]
			if next == nil {
				continue
			}
			msg := next()
			if batch, ok := msg.(tea.BatchMsg); ok {
				queue = append(queue, batch...)
				continue
			}
			queue = append(queue, s.Update(msg))
		}
	}

	run(s.Load())
	require.Nil(t, s.Err())
	require.Empty(t, s.Conversations())

	cmd, err := s.Send("What is SOLID?")
	require.NoError(t, err)
	run(cmd)

	require.Nil(t, s.Err())
	require.True(t, s.Active().IsPersisted())
	require.Len(t, s.Conversations(), 1)
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].IsTemporary())
	assert.Equal(t, model.SenderAssistant, msgs[1].Sender)
	assert.True(t, s.Consistent())

	id, _ := s.Active().Value()
	run(s.Rename(id, "SOLID"))
	require.Nil(t, s.Err())
	conv, ok := s.Conversation(id)
	require.True(t, ok)
	assert.Equal(t, "SOLID", conv.Title)

	require.NoError(t, s.RequestDelete(id))
	run(s.ConfirmDelete())
	require.Nil(t, s.Err())
	assert.Empty(t, s.Conversations())
	assert.True(t, s.Active().IsNone())
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestMiddleware_HeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestMiddleware_NotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.ts.URL + "/api/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware(&CORSConfig{
		AllowedOrigins: []string{"http://app.local"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         60,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed preflight", http.MethodOptions, "http://app.local", http.StatusNoContent, "http://app.local"},
		{"allowed get", http.MethodGet, "http://app.local", http.StatusOK, "http://app.local"},
		{"other origin", http.MethodGet, "http://evil.local", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(NewRateLimiter(0.001, 2))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.8:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per client")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(RecoveryMiddleware())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "198.51.100.1:1234", "", "198.51.100.1"},
		{"remote cannot spoof", "198.51.100.1:1234", "10.0.0.1", "198.51.100.1"},
		{"loopback proxy", "127.0.0.1:1234", "10.0.0.1, 127.0.0.1", "10.0.0.1"},
		{"loopback invalid header", "127.0.0.1:1234", "garbage", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

// =============================================================================
// RESPONDERS
// =============================================================================

func TestEchoResponder(t *testing.T) {
	history := []model.Message{
		{Sender: model.SenderUser, Content: "one"},
		{Sender: model.SenderAssistant, Content: "reply"},
		{Sender: model.SenderUser, Content: "two\nlines"},
	}
	reply, err := EchoResponder{}.Reply(context.Background(), history)
	require.NoError(t, err)
	assert.Contains(t, reply, "> two\n> lines")
	assert.Contains(t, reply, "Message 2")

	long := []model.Message{{Sender: model.SenderUser, Content: strings.Repeat("x", maxEchoQuote+100)}}
	reply, err = EchoResponder{}.Reply(context.Background(), long)
	require.NoError(t, err)
	assert.Contains(t, reply, strings.Repeat("x", maxEchoQuote-3)+"...")
	assert.NotContains(t, reply, strings.Repeat("x", maxEchoQuote-2))

	_, err = EchoResponder{}.Reply(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestToChatMessages(t *testing.T) {
	history := make([]model.Message, maxHistory+5)
	for i := range history {
		history[i] = model.Message{Sender: model.SenderUser, Content: "q"}
	}
	history[len(history)-1].Sender = model.SenderAssistant

	out := toChatMessages("system", history)
	require.Len(t, out, maxHistory+1)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "assistant", out[len(out)-1].Role)
}
