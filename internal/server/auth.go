// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jeranaias/chatdesk/internal/api"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

const tokenIssuer = "chatdesk"

// =============================================================================
// TOKENS
// =============================================================================

// TokenManager issues and validates HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager. An empty secret is replaced by a random
// one, which invalidates all tokens when the process restarts.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, errors.Wrap(err, "generate jwt secret")
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID.
func (m *TokenManager) Issue(userID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	return signed, errors.Wrap(err, "sign token")
}

// Validate checks signature, issuer and expiry and returns the subject.
func (m *TokenManager) Validate(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		// SECURITY: reject alg=none and asymmetric algorithms
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// normalizeEmail validates and lower-cases an address.
func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", errors.New("invalid email address")
	}
	return strings.ToLower(addr.Address), nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.internalError(w, err, "hash password")
		return
	}

	user := userRecord{ID: newID(), Name: name, Email: email, PasswordHash: string(hash)}
	err = s.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&userRecord{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errEmailTaken
		}
		var total int64
		if err := tx.Model(&userRecord{}).Count(&total).Error; err != nil {
			return err
		}
		user.IsAdmin = total == 0
		return tx.Create(&user).Error
	})
	if errors.Is(err, errEmailTaken) {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	if err != nil {
		s.internalError(w, err, "create user")
		return
	}

	s.respondWithToken(w, http.StatusCreated, &user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	var user userRecord
	err = s.db.WithContext(r.Context()).First(&user, "email = ?", email).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.internalError(w, err, "load user")
		return
	}
	// SECURITY: same message for unknown email and wrong password
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.respondWithToken(w, http.StatusOK, &user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()).toAPI())
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, user *userRecord) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.internalError(w, err, "issue token")
		return
	}
	writeJSON(w, status, api.AuthResponse{Token: token, User: user.toAPI()})
}

var errEmailTaken = errors.New("email taken")
