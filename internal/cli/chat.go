// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat and one-shot questions.
//
// Both commands talk to the same POST /chat endpoint as the full-screen
// client and render replies through glamour.
package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/reveal"
)

const chatHistoryFile = "chat_history"

// =============================================================================
// ASK
// =============================================================================

func newAskCommand(app *App) *cobra.Command {
	var (
		conversation string
		raw          bool
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a single question and print the reply",
		Example: `  chatdesk ask "What is SOLID?"
  chatdesk ask --conversation 3f2c... "And the L?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			if content == "" {
				return NewValidationError("question", "", "must not be empty")
			}

			c, _, err := app.authedClient()
			if err != nil {
				return err
			}
			resp, err := c.SendChat(cmd.Context(), content, conversationFlag(conversation))
			if err != nil {
				return err
			}

			fmt.Fprintln(app.Out, renderReply(resp.AssistantMessage.Content, !raw && app.Config.UI.Markdown))
			printHint(app.Err, "conversation %s", resp.ConversationID)
			return nil
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "continue an existing conversation (\"new\" starts one)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}

// =============================================================================
// CHAT
// =============================================================================

func newChatCommand(app *App) *cobra.Command {
	var conversation string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in line mode with input history",
		Long: `Chat without the full-screen interface.

Commands:
  /new    start a new conversation
  /quit   leave (Ctrl+C and Ctrl+D also work)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, creds, err := app.authedClient()
			if err != nil {
				return err
			}
			if p, ok := app.Prompter.(*terminalPrompter); ok && p.historyPath == "" {
				if dir, err := config.Dir(); err == nil {
					p.historyPath = filepath.Join(dir, chatHistoryFile)
				}
			}

			session := &lineChat{
				client:       c,
				prompter:     app.Prompter,
				out:          app.Out,
				errOut:       app.Err,
				markdown:     app.Config.UI.Markdown,
				conversation: conversationFlag(conversation),
			}
			if !session.markdown && IsStdoutTTY() {
				session.typeChunk = app.Config.Reveal.ChunkSize
				session.typeDelay = app.Config.RevealInterval()
			}

			fmt.Fprintln(app.Out, TitleStyle.Render("chatdesk"))
			printHint(app.Out, "Logged in as %s. Type /new for a new conversation, /quit to leave.", describeUser(creds.User))
			return session.run(cmd)
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "continue an existing conversation (\"new\" starts one)")
	return cmd
}

// lineChat holds the state of one line-mode session.
type lineChat struct {
	client       *api.Client
	prompter     Prompter
	out, errOut  io.Writer
	markdown     bool
	conversation *string
	sent         int

	// typeChunk > 0 types plain replies out at the reveal pace.
	typeChunk int
	typeDelay time.Duration
}

func (l *lineChat) run(cmd *cobra.Command) error {
	for {
		input, err := l.prompter.Prompt("you> ")
		if err != nil {
			if errors.Is(err, ErrCancelled) || errors.Is(err, io.EOF) {
				fmt.Fprintln(l.out)
				l.summary()
				return nil
			}
			return err
		}

		switch strings.ToLower(input) {
		case "":
			continue
		case "/quit", "/exit", "/q":
			l.summary()
			return nil
		case "/new":
			l.conversation = nil
			printHint(l.out, "Started a new conversation.")
			continue
		}

		resp, err := l.client.SendChat(cmd.Context(), input, l.conversation)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				return err
			}
			printError(l.errOut, err)
			continue
		}
		id := resp.ConversationID
		l.conversation = &id
		l.sent++

		fmt.Fprintln(l.out, AssistantStyle.Render(string(model.SenderAssistant)+">"))
		if l.typeChunk > 0 {
			typeOut(cmd.Context(), l.out, resp.AssistantMessage.Content, l.typeChunk, l.typeDelay)
			continue
		}
		fmt.Fprintln(l.out, renderReply(resp.AssistantMessage.Content, l.markdown))
	}
}

// typeOut writes text one reveal frame at a time, then a newline. The rest
// is written at once if ctx is cancelled.
func typeOut(ctx context.Context, w io.Writer, text string, chunk int, delay time.Duration) {
	written := 0
	for _, frame := range reveal.Frames(text, chunk) {
		io.WriteString(w, frame[written:])
		written = len(frame)
		if delay <= 0 || written == len(text) {
			continue
		}
		select {
		case <-ctx.Done():
			io.WriteString(w, text[written:])
			fmt.Fprintln(w)
			return
		case <-time.After(delay):
		}
	}
	fmt.Fprintln(w)
}

// conversationFlag turns a --conversation value into the request id;
// empty and "new" start a new conversation.
func conversationFlag(value string) *string {
	id, ok := model.ParseConversationID(strings.TrimSpace(value)).Value()
	if !ok {
		return nil
	}
	return &id
}

func (l *lineChat) summary() {
	if l.sent == 0 {
		return
	}
	msg := fmt.Sprintf("%d message(s) sent", l.sent)
	if l.conversation != nil {
		msg += fmt.Sprintf(" in conversation %s", *l.conversation)
	}
	printHint(l.out, "%s", msg)
}

// renderReply renders markdown for the terminal, falling back to the raw text.
func renderReply(content string, markdown bool) string {
	if !markdown {
		return content
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(GetTerminalWidth() - 4)}
	if ColorsEnabled() {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
