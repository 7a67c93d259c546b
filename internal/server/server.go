// Package server provides the HTTP API for Otoshimono.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/otoshimono/otoshimono/internal/config"
	"github.com/otoshimono/otoshimono/internal/keyword"
	"github.com/otoshimono/otoshimono/internal/matching"
	"github.com/otoshimono/otoshimono/internal/storage"
)

// Server is the HTTP server for the Otoshimono API.
type Server struct {
	engine       *matching.Engine
	store        storage.Store
	keywordIndex keyword.ItemIndex
	config       *config.Config
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. keywordIndex may be
// nil; the items search endpoint then responds 501.
func NewServer(
	engine *matching.Engine,
	store storage.Store,
	keywordIndex keyword.ItemIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:       engine,
		store:        store,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/report", s.handleReport)
	r.Get("/api/v1/items", s.handleListItems)
	r.Get("/api/v1/items/search", s.handleItemSearch)
	r.Get("/api/v1/items/{id}", s.handleGetItem)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
