// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/util"
)

// FileName is the credentials file inside the chatdesk directory.
const FileName = "session.json"

// ErrNoSession is returned by Load when no credentials are saved.
// Use errors.Is(err, ErrNoSession) to check for this error.
var ErrNoSession = &Error{Message: "not logged in"}

// ErrExpired is returned by Load when the saved token has expired.
var ErrExpired = &Error{Message: "session expired"}

// Error represents a session error.
type Error struct {
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials are what login leaves behind for later commands.
type Credentials struct {
	Token   string    `json:"token"`
	User    api.User  `json:"user"`
	BaseURL string    `json:"baseUrl,omitempty"`
	SavedAt time.Time `json:"savedAt"`
}

// ExpiresAt reads the exp claim of a JWT token without verifying it.
// ok is false for opaque tokens or tokens without exp.
func (c *Credentials) ExpiresAt() (exp time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token is known to have expired at now.
func (c *Credentials) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && !now.Before(exp)
}

// =============================================================================
// STORE
// =============================================================================

// Store persists credentials in a single JSON file.
type Store struct {
	Path string
}

// NewStore returns a store at dir/session.json.
func NewStore(dir string) *Store {
	return &Store{Path: filepath.Join(dir, FileName)}
}

// Save writes creds.
// SECURITY: The file holds a bearer token and is written 0600.
func (s *Store) Save(creds *Credentials) error {
	if strings.TrimSpace(creds.Token) == "" {
		return errors.New("refusing to save empty token")
	}
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}
	return errors.Wrap(util.AtomicWriteFile(s.Path, data, 0600), "failed to save session")
}

// Load returns the saved credentials. It returns ErrNoSession when nothing is
// saved and ErrExpired (with the credentials) when the token has expired.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "failed to read session")
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrap(err, "corrupt session file")
	}
	if creds.Token == "" {
		return nil, ErrNoSession
	}
	if creds.Expired(time.Now()) {
		return &creds, ErrExpired
	}
	return &creds, nil
}

// Clear deletes the saved credentials. Clearing an absent session is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove session")
	}
	return nil
}
