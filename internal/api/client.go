// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/util"
)

// Configuration constants for the backend client.
const (
	// DefaultBaseURL is the backend used when none is configured.
	DefaultBaseURL = "http://localhost:8080/api"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default sustained request rate per second.
	DefaultRateLimit = 10

	// DefaultBurst is the default request burst size.
	DefaultBurst = 5

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "chatdesk/0.1"
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend REST API.
// It is safe for concurrent use; commands run it from several goroutines.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the backend at baseURL.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
	}
}

// WithToken sets the bearer token attached to every request.
func (c *Client) WithToken(token string) *Client {
	c.token = strings.TrimSpace(token)
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithRateLimit sets the sustained requests per second and burst.
// A non-positive perSecond disables limiting.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations fetches the sidebar list and an optional initial selection.
// Both the object form and a bare JSON array are accepted.
func (c *Client) ListConversations(ctx context.Context) (*ConversationList, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &raw); err != nil {
		return nil, err
	}

	list := &ConversationList{}
	if isJSONArray(raw) {
		if err := json.Unmarshal(raw, &list.Conversations); err != nil {
			return nil, errors.Wrap(ErrMalformedResponse, err.Error())
		}
	} else if err := json.Unmarshal(raw, list); err != nil {
		return nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}
	if list.Conversations == nil {
		list.Conversations = []model.Conversation{}
	}
	return list, nil
}

// ListMessages fetches the transcript of one conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var raw json.RawMessage
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var msgs []model.Message
	if isJSONArray(raw) {
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return nil, errors.Wrap(ErrMalformedResponse, err.Error())
		}
	} else {
		var wrapped struct {
			Messages []model.Message `json:"messages"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, errors.Wrap(ErrMalformedResponse, err.Error())
		}
		msgs = wrapped.Messages
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// RenameConversation sets a conversation title and returns the updated record.
func (c *Client) RenameConversation(ctx context.Context, conversationID, title string) (*model.Conversation, error) {
	var conv model.Conversation
	path := "/conversations/" + url.PathEscape(conversationID)
	if err := c.do(ctx, http.MethodPatch, path, renameRequest{Title: title}, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		conv.ID = conversationID
	}
	if conv.Title == "" {
		conv.Title = title
	}
	return &conv, nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	path := "/conversations/" + url.PathEscape(conversationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// =============================================================================
// CHAT
// =============================================================================

// SendChat posts a user message. A nil conversationID asks the backend to
// create the conversation as part of the send.
func (c *Client) SendChat(ctx context.Context, content string, conversationID *string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", ChatRequest{Content: content, Conversation: conversationID}, &resp); err != nil {
		return nil, err
	}

	if resp.ConversationID == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "missing conversationId")
	}
	if resp.UserMessage.ID == "" || resp.AssistantMessage.ID == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "missing message ids")
	}
	if resp.UserMessage.ConversationID == "" {
		resp.UserMessage.ConversationID = resp.ConversationID
	}
	if resp.AssistantMessage.ConversationID == "" {
		resp.AssistantMessage.ConversationID = resp.ConversationID
	}
	if resp.UserMessage.Sender == "" {
		resp.UserMessage.Sender = model.SenderUser
	}
	if resp.AssistantMessage.Sender == "" {
		resp.AssistantMessage.Sender = model.SenderAssistant
	}
	return &resp, nil
}

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "missing token")
	}
	return &resp, nil
}

// Register creates an account and returns its bearer token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := registerRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "missing token")
	}
	return &resp, nil
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// =============================================================================
// FEEDBACK
// =============================================================================

// SubmitFeedback records a rating and comment.
func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) (*Feedback, error) {
	var out Feedback
	if err := c.do(ctx, http.MethodPost, "/feedback", fb, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFeedback returns all feedback. Admin only.
func (c *Client) ListFeedback(ctx context.Context) ([]Feedback, error) {
	var out []Feedback
	if err := c.do(ctx, http.MethodGet, "/admin/feedback", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Feedback{}
	}
	return out, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one request. out may be nil when the body is ignored.
// SECURITY: The Authorization header is cleared after the request and never logged.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	c.setHeaders(req, body != nil)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "%s %s", method, path)
		}
		logging.Warn().Str("method", method).Str("path", path).Err(err).Msg("api request failed")
		return errors.Wrapf(ErrUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	logging.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api response")

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(ErrMalformedResponse, err.Error())
	}
	return nil
}

// setHeaders sets the headers every backend request carries.
func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, errors.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// maxErrorMessageRunes caps a plain-text error body kept in APIError.Message.
const maxErrorMessageRunes = 200

// handleErrorResponse converts an error response into an *APIError.
func handleErrorResponse(status int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return newAPIError(status, apiErr.Error)
	}
	return newAPIError(status, util.TruncateRunes(strings.TrimSpace(string(body)), maxErrorMessageRunes))
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
