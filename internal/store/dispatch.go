// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/model"
)

// =============================================================================
// SEND
// =============================================================================

// Send posts a user message to the active conversation. With no persisted
// conversation active the backend creates one as part of the send.
//
// A temporary user message is shown immediately and replaced by the
// confirmed one on success, or removed on failure. The reply is revealed
// progressively and committed to the transcript when the reveal completes.
// A reveal still running from an earlier send is cut short and its reply
// committed in full.
func (s *Store) Send(content string) (tea.Cmd, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		err := invalid(OpSend, ErrEmptyMessage)
		s.fail(err)
		return nil, err
	}

	target := s.active
	convID, persisted := target.Value()
	if !persisted && s.draftSending && s.draftFlight == s.draftSeq {
		err := invalid(OpSend, ErrConversationPending)
		s.fail(err)
		return nil, err
	}

	s.err = nil
	s.flushReveal()

	temp := model.NewTempUserMessage(convID, text, s.tempTime())
	s.messages = append(s.messages, temp)
	s.sending++

	var reqConv *string
	if persisted {
		reqConv = &convID
	} else {
		s.draftSending = true
		s.draftFlight = s.draftSeq
	}

	logging.Debug().
		Str("conversation", target.String()).
		Str("temp_id", temp.ID).
		Msg("sending message")

	gen, draftSeq, ctx, backend, timeout := s.gen, s.draftSeq, s.ctx, s.backend, s.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		resp, err := backend.SendChat(ctx, text, reqConv)
		return SentMsg{
			gen:      gen,
			draftSeq: draftSeq,
			target:   target,
			tempID:   temp.ID,
			content:  text,
			Response: resp,
			Err:      err,
		}
	}, nil
}

// tempTime returns a timestamp for a temporary id, unique within the session.
func (s *Store) tempTime() time.Time {
	at := s.now()
	if !at.After(s.lastTemp) {
		at = s.lastTemp.Add(time.Nanosecond)
	}
	s.lastTemp = at
	return at
}

func (s *Store) applySent(msg SentMsg) tea.Cmd {
	if msg.gen != s.gen {
		return nil
	}
	s.sending--
	if !msg.target.IsPersisted() && s.draftSending && s.draftFlight == msg.draftSeq {
		s.draftSending = false
	}

	if msg.Err == nil && (msg.Response == nil || msg.Response.ConversationID == "") {
		msg.Err = api.ErrMalformedResponse
	}
	if msg.Err != nil {
		s.removeMessage(msg.tempID)
		s.fail(classify(OpSend, msg.Err))
		return nil
	}

	resp := normalizeChat(msg.Response)
	convID := resp.ConversationID
	at := resp.AssistantMessage.CreatedAt
	if at.IsZero() {
		at = s.now()
	}

	if msg.target.IsPersisted() {
		s.Touch(convID, at)
		if !s.active.Is(convID) {
			return nil
		}
	} else {
		if model.IndexOf(s.conversations, convID) < 0 {
			created := resp.UserMessage.CreatedAt
			if created.IsZero() {
				created = at
			}
			conv := model.NewConversation(convID, msg.content, created)
			conv.UpdatedAt = at
			s.conversations = append([]model.Conversation{conv}, s.conversations...)
		} else {
			s.Touch(convID, at)
		}
		if s.draftSeq != msg.draftSeq || s.active.IsPersisted() {
			s.removeMessage(msg.tempID)
			return nil
		}
		s.active = model.Persisted(convID)
		for i := range s.messages {
			if s.messages[i].ConversationID == "" {
				s.messages[i].ConversationID = convID
			}
		}
	}

	s.reconcile(msg.tempID, resp.UserMessage)
	if model.IndexOfMessage(s.messages, resp.AssistantMessage.ID) >= 0 {
		return nil
	}
	return s.startReveal(resp.AssistantMessage, resp.UserMessage.ID)
}

// reconcile replaces the temporary message by identity with the confirmed one.
func (s *Store) reconcile(tempID string, confirmed model.Message) {
	if model.IndexOfMessage(s.messages, confirmed.ID) >= 0 {
		s.removeMessage(tempID)
		return
	}
	if i := model.IndexOfMessage(s.messages, tempID); i >= 0 {
		s.messages[i] = confirmed
		return
	}
	s.messages = append(s.messages, confirmed)
}

func (s *Store) removeMessage(id string) {
	i := model.IndexOfMessage(s.messages, id)
	if i < 0 {
		return
	}
	s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
}

func normalizeChat(resp *api.ChatResponse) api.ChatResponse {
	out := *resp
	if out.UserMessage.ConversationID == "" {
		out.UserMessage.ConversationID = out.ConversationID
	}
	if out.AssistantMessage.ConversationID == "" {
		out.AssistantMessage.ConversationID = out.ConversationID
	}
	if out.UserMessage.Sender == "" {
		out.UserMessage.Sender = model.SenderUser
	}
	if out.AssistantMessage.Sender == "" {
		out.AssistantMessage.Sender = model.SenderAssistant
	}
	return out
}

// =============================================================================
// REVEAL
// =============================================================================

// startReveal hands reply to the animator. The reply joins the transcript
// right after the user message afterID when the animator completes.
func (s *Store) startReveal(reply model.Message, afterID string) tea.Cmd {
	s.flushReveal()
	s.pending = &reply
	s.after = afterID
	s.partial = ""
	return s.animator.Start(reply.Content,
		func(frame string) { s.partial = frame },
		func(string) { s.commitReveal() },
	)
}

// commitReveal inserts the pending reply after the user message it answers,
// or appends it when that message is not in the transcript. Nothing is
// committed when the reply's conversation is no longer active.
func (s *Store) commitReveal() {
	if s.pending == nil {
		return
	}
	reply, after := *s.pending, s.after
	s.pending = nil
	s.after = ""
	s.partial = ""
	if !s.active.Is(reply.ConversationID) || model.IndexOfMessage(s.messages, reply.ID) >= 0 {
		return
	}
	i := model.IndexOfMessage(s.messages, after)
	if after == "" || i < 0 {
		s.messages = append(s.messages, reply)
		return
	}
	s.messages = append(s.messages[:i+1], append([]model.Message{reply}, s.messages[i+1:]...)...)
}

// flushReveal stops a running reveal and commits the full reply at once.
func (s *Store) flushReveal() {
	if s.pending == nil {
		return
	}
	s.animator.Cancel()
	s.commitReveal()
}

// dropReveal stops a running reveal and discards its reply. The backend
// already has the reply; the next fetch of that conversation shows it.
func (s *Store) dropReveal() {
	s.animator.Cancel()
	s.pending = nil
	s.after = ""
	s.partial = ""
}

var _ Backend = (*api.Client)(nil)
