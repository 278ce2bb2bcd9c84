// Package api exposes the orchestrator over HTTP: a JSON API for queries,
// handoffs and fan-out, document ingestion and search, a server-sent event
// stream, and a WebSocket surface for interactive clients.
package api

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"foreman/internal/documents"
	"foreman/internal/orchestrator"
	"foreman/internal/storage"
)

// Options tunes the HTTP surface.
type Options struct {
	// JWTSecret enables bearer-token auth on the v1 group when set.
	JWTSecret string
	// DocumentRoot restricts ingestion to one directory tree when set.
	DocumentRoot string
}

// Server wires the orchestrator, document store and audit store into a
// gin router.
type Server struct {
	router  *gin.Engine
	orch    *orchestrator.Orchestrator
	docs    *documents.Store
	audit   *storage.Store
	logger  *slog.Logger
	docRoot string
}

// NewServer builds the router. audit may be nil when persistence is off.
func NewServer(orch *orchestrator.Orchestrator, docs *documents.Store, audit *storage.Store, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	docRoot := opts.DocumentRoot
	if docRoot != "" {
		if abs, err := filepath.Abs(docRoot); err == nil {
			docRoot = abs
		}
	}

	s := &Server{
		router:  gin.New(),
		orch:    orch,
		docs:    docs,
		audit:   audit,
		logger:  logger.With("component", "api"),
		docRoot: docRoot,
	}

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes(opts.JWTSecret)
	return s
}

// Handler returns the router for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all API endpoints.
func (s *Server) setupRoutes(jwtSecret string) {
	s.router.GET("/health", s.Health)
	s.router.GET("/ws", s.HandleWebSocket)

	v1 := s.router.Group("/api/v1")
	if jwtSecret != "" {
		v1.Use(AuthRequired(jwtSecret))
	}
	{
		// Query surface
		v1.POST("/query", s.SubmitQuery)
		v1.POST("/query/stream", s.StreamQuery)
		v1.POST("/handoff", s.SubmitHandoff)
		v1.POST("/multi", s.SubmitMulti)
		v1.POST("/synthesize", s.Synthesize)

		// Documents
		v1.POST("/documents", s.IngestDocuments)
		v1.GET("/documents/search", s.SearchDocuments)
		v1.GET("/documents/stats", s.DocumentStats)

		// System
		v1.GET("/status", s.SystemStatus)
		v1.POST("/reset", s.Reset)
	}
}

// requestLogger reports each request through the structured logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Health reports liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "foreman"})
}
