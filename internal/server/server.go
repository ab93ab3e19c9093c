// Package server exposes the document and question endpoints over HTTP.
package server

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragqa/server/internal/agent/model"
	"github.com/ragqa/server/internal/core"
	"github.com/ragqa/server/internal/documents"
	"github.com/ragqa/server/internal/metrics"
	logx "github.com/ragqa/server/pkg/logger"
)

// APIVersion is reported by the welcome endpoint.
const APIVersion = "1.0.0"

// maxUploadBody bounds request bodies.
const maxUploadBody = "50M"

// Pipeline is the query side the handlers depend on.
type Pipeline interface {
	Execute(ctx context.Context, in model.QueryInput) (*model.Answer, error)
	AddDocument(ctx context.Context, doc model.Document) (string, error)
	RemoveDocument(id string) bool
	Documents() int
}

// Server provides HTTP endpoints for the service.
type Server struct {
	echo     *echo.Echo
	pipeline Pipeline
	repo     documents.Repository
	metrics  *metrics.Metrics
	config   *core.ServerConfig
}

// NewServer creates a new HTTP server.
func NewServer(pipeline Pipeline, repo documents.Repository, m *metrics.Metrics, cfg *core.ServerConfig) (*Server, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if repo == nil {
		return nil, fmt.Errorf("document repository cannot be nil")
	}
	if cfg == nil {
		cfg = &core.ServerConfig{Host: "0.0.0.0", Port: 8000}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(requestObserver(m))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(maxUploadBody))

	s := &Server{
		echo:     e,
		pipeline: pipeline,
		repo:     repo,
		metrics:  m,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/docs", s.handleDocs)
	s.echo.GET("/welcome", s.handleWelcome)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.handleHealth)
	v1.POST("/ask", s.handleAsk)

	docs := v1.Group("/documents")
	docs.POST("/upload", s.handleUpload)
	docs.GET("", s.handleListDocuments)
	docs.GET("/:id", s.handleGetDocument)
	docs.GET("/:id/text", s.handleDocumentText)
	docs.DELETE("/:id", s.handleDeleteDocument)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := s.config.Addr()
	logx.Info().Str("addr", addr).Msg("Starting http server")
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logx.Info().Msg("Shutting down http server")
	return s.echo.Shutdown(ctx)
}
