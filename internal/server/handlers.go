// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/model"
)

// ============================================================================
// OWNERSHIP
// ============================================================================

// ownedConversation loads conversation id for the current user. Unknown ids
// answer 404; conversations of other users answer 403.
func (s *Server) ownedConversation(w http.ResponseWriter, r *http.Request, id string) (*conversationRecord, bool) {
	var conv conversationRecord
	err := s.db.WithContext(r.Context()).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, err, "load conversation")
		return nil, false
	}
	if conv.UserID != userFrom(r.Context()).ID {
		writeError(w, http.StatusForbidden, "you do not have access to this conversation")
		return nil, false
	}
	return &conv, true
}

func (s *Server) loadMessages(ctx context.Context, db *gorm.DB, conversationID string) ([]model.Message, error) {
	var records []messageRecord
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(records))
	for i := range records {
		out = append(out, records[i].toModel())
	}
	return out, nil
}

// ============================================================================
// CONVERSATIONS
// ============================================================================

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	var records []conversationRecord
	err := s.db.WithContext(r.Context()).
		Where("user_id = ?", userFrom(r.Context()).ID).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		s.internalError(w, err, "list conversations")
		return
	}

	list := api.ConversationList{Conversations: make([]model.Conversation, 0, len(records))}
	for i := range records {
		list.Conversations = append(list.Conversations, records[i].toModel())
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.ownedConversation(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	msgs, err := s.loadMessages(r.Context(), s.db, conv.ID)
	if err != nil {
		s.internalError(w, err, "list messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type renameBody struct {
	Title string `json:"title"`
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.ownedConversation(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var body renameBody
	if !s.decode(w, r, &body) {
		return
	}

	title := model.NormalizeTitle(body.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
		return
	}

	// UpdateColumn leaves updated_at alone; renaming does not reorder.
	if err := s.db.WithContext(r.Context()).Model(conv).UpdateColumn("title", title).Error; err != nil {
		s.internalError(w, err, "rename conversation")
		return
	}
	conv.Title = title
	writeJSON(w, http.StatusOK, conv.toModel())
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.ownedConversation(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	err := s.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&messageRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(conv).Error
	})
	if err != nil {
		s.internalError(w, err, "delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// CHAT
// ============================================================================

type chatBody struct {
	Content      string  `json:"content"`
	Conversation *string `json:"conversation"`
}

// handleChat appends a user message and the assistant's reply. A null
// conversation creates one titled after the message. Nothing is stored when
// the responder fails.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if !s.decode(w, r, &body) {
		return
	}

	content := strings.TrimSpace(body.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "message content is required")
		return
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("message must be at most %d characters", MaxMessageLength))
		return
	}

	user := userFrom(r.Context())
	var conv *conversationRecord
	var history []model.Message
	if body.Conversation != nil {
		id := strings.TrimSpace(*body.Conversation)
		if id == "" {
			writeError(w, http.StatusBadRequest, "conversation id must not be empty")
			return
		}
		var ok bool
		if conv, ok = s.ownedConversation(w, r, id); !ok {
			return
		}
		var err error
		if history, err = s.loadMessages(r.Context(), s.db, conv.ID); err != nil {
			s.internalError(w, err, "load history")
			return
		}
	}

	sentAt := s.now()
	userMsg := model.Message{ID: newID(), Sender: model.SenderUser, Content: content, CreatedAt: sentAt}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ReplyTimeout)
	defer cancel()
	reply, err := s.responder.Reply(ctx, append(history, userMsg))
	if err != nil {
		log.Warn().Err(err).Str("responder", s.responder.Name()).Msg("reply failed")
		writeError(w, http.StatusBadGateway, "the assistant is unavailable, try again")
		return
	}

	repliedAt := s.now()
	if !repliedAt.After(sentAt) {
		repliedAt = sentAt.Add(1)
	}
	assistantMsg := model.Message{ID: newID(), Sender: model.SenderAssistant, Content: reply, CreatedAt: repliedAt}

	err = s.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if conv == nil {
			conv = &conversationRecord{
				ID:        newID(),
				UserID:    user.ID,
				Title:     model.DefaultTitle(content),
				CreatedAt: sentAt,
				UpdatedAt: repliedAt,
			}
			if err := tx.Create(conv).Error; err != nil {
				return err
			}
		}

		var last int
		err := tx.Model(&messageRecord{}).
			Where("conversation_id = ?", conv.ID).
			Select("COALESCE(MAX(seq), -1)").
			Scan(&last).Error
		if err != nil {
			return err
		}

		userMsg.ConversationID = conv.ID
		assistantMsg.ConversationID = conv.ID
		records := []messageRecord{
			{ID: userMsg.ID, ConversationID: conv.ID, Seq: last + 1, Sender: string(userMsg.Sender), Content: userMsg.Content, CreatedAt: userMsg.CreatedAt},
			{ID: assistantMsg.ID, ConversationID: conv.ID, Seq: last + 2, Sender: string(assistantMsg.Sender), Content: assistantMsg.Content, CreatedAt: assistantMsg.CreatedAt},
		}
		if err := tx.Create(&records).Error; err != nil {
			return err
		}
		conv.UpdatedAt = repliedAt
		return tx.Model(conv).UpdateColumn("updated_at", repliedAt).Error
	})
	if err != nil {
		s.internalError(w, err, "store chat")
		return
	}

	writeJSON(w, http.StatusOK, api.ChatResponse{
		ConversationID:   conv.ID,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
}

// ============================================================================
// FEEDBACK
// ============================================================================

type feedbackBody struct {
	Rating         int    `json:"rating"`
	Comment        string `json:"comment"`
	ConversationID string `json:"conversationId"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackBody
	if !s.decode(w, r, &body) {
		return
	}
	if body.Rating < api.MinRating || body.Rating > api.MaxRating {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("rating must be between %d and %d", api.MinRating, api.MaxRating))
		return
	}
	comment := strings.TrimSpace(body.Comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
		return
	}
	if body.ConversationID != "" {
		if _, ok := s.ownedConversation(w, r, body.ConversationID); !ok {
			return
		}
	}

	user := userFrom(r.Context())
	rec := feedbackRecord{
		ID:             newID(),
		UserID:         user.ID,
		ConversationID: body.ConversationID,
		Rating:         body.Rating,
		Comment:        comment,
		CreatedAt:      s.now(),
	}
	if err := s.db.WithContext(r.Context()).Create(&rec).Error; err != nil {
		s.internalError(w, err, "store feedback")
		return
	}
	writeJSON(w, http.StatusCreated, toFeedback(&rec, user.Email))
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	var records []feedbackRecord
	if err := s.db.WithContext(r.Context()).Order("created_at DESC").Find(&records).Error; err != nil {
		s.internalError(w, err, "list feedback")
		return
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.UserID)
	}
	var users []userRecord
	if len(ids) > 0 {
		if err := s.db.WithContext(r.Context()).Where("id IN ?", ids).Find(&users).Error; err != nil {
			s.internalError(w, err, "load feedback authors")
			return
		}
	}
	emails := make(map[string]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}

	out := make([]api.Feedback, 0, len(records))
	for i := range records {
		out = append(out, toFeedback(&records[i], emails[records[i].UserID]))
	}
	writeJSON(w, http.StatusOK, out)
}

func toFeedback(rec *feedbackRecord, email string) api.Feedback {
	return api.Feedback{
		ID:             rec.ID,
		UserEmail:      email,
		ConversationID: rec.ConversationID,
		Rating:         rec.Rating,
		Comment:        rec.Comment,
		CreatedAt:      rec.CreatedAt,
	}
}
