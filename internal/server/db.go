// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/model"
)

// =============================================================================
// RECORDS
// =============================================================================

type userRecord struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	IsAdmin      bool
	CreatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func (u *userRecord) toAPI() api.User {
	return api.User{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin}
}

type conversationRecord struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (conversationRecord) TableName() string { return "conversations" }

func (c *conversationRecord) toModel() model.Conversation {
	return model.Conversation{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type messageRecord struct {
	ID             string `gorm:"primaryKey"`
	ConversationID string `gorm:"index:idx_conv_seq,priority:1;not null"`
	// Seq orders messages within a conversation.
	Seq       int    `gorm:"index:idx_conv_seq,priority:2"`
	Sender    string `gorm:"not null"`
	Content   string
	CreatedAt time.Time
}

func (messageRecord) TableName() string { return "messages" }

func (m *messageRecord) toModel() model.Message {
	return model.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         model.Sender(m.Sender),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

type feedbackRecord struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index;not null"`
	ConversationID string
	Rating         int
	Comment        string
	CreatedAt      time.Time `gorm:"index"`
}

func (feedbackRecord) TableName() string { return "feedback" }

// =============================================================================
// DATABASE
// =============================================================================

// OpenDB opens (creating if needed) the SQLite database at path and migrates it.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", path)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(&userRecord{}, &conversationRecord{}, &messageRecord{}, &feedbackRecord{})
	return errors.Wrap(err, "migrate database")
}

func newID() string {
	return uuid.NewString()
}
