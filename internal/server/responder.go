// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/util"
)

// Responder produces the assistant's reply for a conversation. history ends
// with the user message being answered.
type Responder interface {
	Reply(ctx context.Context, history []model.Message) (string, error)
	Name() string
}

// ErrEmptyReply is returned when a responder produced no text.
var ErrEmptyReply = errors.New("assistant returned an empty reply")

// =============================================================================
// ECHO RESPONDER
// =============================================================================

// maxEchoQuote caps how much of the message the echo responder quotes back.
const maxEchoQuote = 2000

// EchoResponder answers deterministically without any upstream model.
// It is the default so the backend runs offline.
type EchoResponder struct{}

// Name implements Responder.
func (EchoResponder) Name() string { return "echo" }

// Reply implements Responder.
func (EchoResponder) Reply(_ context.Context, history []model.Message) (string, error) {
	if len(history) == 0 {
		return "", ErrEmptyReply
	}
	last := history[len(history)-1]
	turns := 0
	for _, m := range history {
		if m.Sender == model.SenderUser {
			turns++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You said:\n\n> %s\n\n", strings.ReplaceAll(util.TruncateRunes(last.Content, maxEchoQuote), "\n", "\n> "))
	fmt.Fprintf(&b, "_Message %d in this conversation._", turns)
	return b.String(), nil
}

// =============================================================================
// OPENAI RESPONDER
// =============================================================================

// DefaultSystemPrompt primes the upstream model.
const DefaultSystemPrompt = "You are a helpful assistant. Answer concisely and use Markdown where it helps."

// maxHistory bounds how many prior messages are sent upstream.
const maxHistory = 40

// OpenAIResponder answers through an OpenAI-compatible chat completion API.
type OpenAIResponder struct {
	client       *openai.Client
	model        string
	SystemPrompt string
}

// NewOpenAIResponder creates a responder. baseURL may be empty for the
// default OpenAI endpoint.
func NewOpenAIResponder(apiKey, modelName, baseURL string) *OpenAIResponder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIResponder{
		client:       openai.NewClientWithConfig(cfg),
		model:        modelName,
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Name implements Responder.
func (o *OpenAIResponder) Name() string { return "openai:" + o.model }

// Reply implements Responder.
func (o *OpenAIResponder) Reply(ctx context.Context, history []model.Message) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toChatMessages(o.SystemPrompt, history),
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(system string, history []model.Message) []openai.ChatCompletionMessage {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	out := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Sender == model.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
