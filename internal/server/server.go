// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jeranaias/chatdesk/internal/config"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength is the maximum message length in runes.
	MaxMessageLength = 32000

	// MaxTitleLength is the maximum conversation title length in runes.
	MaxTitleLength = 200

	// MaxCommentLength is the maximum feedback comment length in runes.
	MaxCommentLength = 2000

	// DefaultReplyTimeout bounds a single responder call.
	DefaultReplyTimeout = 90 * time.Second

	// Version is the backend version reported by /health.
	Version = "0.1.0"
)

// ============================================================================
// OPTIONS
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr         string
	JWTSecret    string
	TokenTTL     time.Duration
	CORSOrigins  []string
	RateLimit    float64
	Burst        int
	ReplyTimeout time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost; tests lower it.
	BcryptCost int
	Responder  Responder
	Now        func() time.Time
}

// OptionsFromConfig derives server options from the application config.
// An OpenAI key selects the OpenAI responder; otherwise replies are echoed.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Addr:        cfg.Server.Addr,
		JWTSecret:   cfg.Server.JWTSecret,
		TokenTTL:    cfg.TokenTTL(),
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if cfg.Server.OpenAIKey != "" {
		opts.Responder = NewOpenAIResponder(cfg.Server.OpenAIKey, cfg.Server.OpenAIModel, "")
	}
	return opts
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the development chat backend.
type Server struct {
	db         *gorm.DB
	router     *mux.Router
	handler    http.Handler
	tokens     *TokenManager
	responder  Responder
	opts       Options
	bcryptCost int
	now        func() time.Time
	server     *http.Server
}

// New creates a server on a migrated database.
func New(db *gorm.DB, opts Options) (*Server, error) {
	tokens, err := NewTokenManager(opts.JWTSecret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	if opts.JWTSecret == "" {
		log.Warn().Msg("no jwt secret configured; tokens will not survive a restart")
	}

	s := &Server{
		db:         db,
		tokens:     tokens,
		responder:  opts.Responder,
		opts:       opts,
		bcryptCost: opts.BcryptCost,
		now:        opts.Now,
	}
	if s.responder == nil {
		s.responder = EchoResponder{}
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.opts.ReplyTimeout <= 0 {
		s.opts.ReplyTimeout = DefaultReplyTimeout
	}
	tokens.now = s.now

	s.setupRoutes()
	s.handler = s.buildHandler()
	return s, nil
}

// setupRoutes registers the API under /api.
func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.AuthMiddleware)
	authed.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	authed.HandleFunc("/conversations/{id}/messages", s.handleListMessages).Methods(http.MethodGet)
	authed.HandleFunc("/conversations/{id}", s.handleRenameConversation).Methods(http.MethodPatch)
	authed.HandleFunc("/conversations/{id}", s.handleDeleteConversation).Methods(http.MethodDelete)
	authed.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	authed.HandleFunc("/feedback", s.handleSubmitFeedback).Methods(http.MethodPost)

	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(AdminMiddleware)
	admin.HandleFunc("/feedback", s.handleListFeedback).Methods(http.MethodGet)

	s.router = r
}

func (s *Server) buildHandler() http.Handler {
	cors := DefaultCORSConfig()
	if len(s.opts.CORSOrigins) > 0 {
		cors.AllowedOrigins = s.opts.CORSOrigins
	}
	limiter := DefaultRateLimiter()
	if s.opts.RateLimit > 0 {
		limiter = NewRateLimiter(s.opts.RateLimit, max(s.opts.Burst, 1))
	}

	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(),
		CORSMiddleware(cors),
		RateLimitMiddleware(limiter),
	)(s.router)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   Version,
		"responder": s.responder.Name(),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on Options.Addr and blocks until the server stops.
// It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.opts.ReplyTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().
		Str("addr", s.opts.Addr).
		Str("version", Version).
		Str("responder", s.responder.Name()).
		Msg("server starting")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("server shutting down")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

// writeError writes a {"error": message} response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decode reads a bounded JSON body into v, answering 400 or 413 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, err error, what string) {
	log.Error().Err(err).Str("op", what).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
