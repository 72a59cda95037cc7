// Package httpapi exposes the session engine over HTTP: session lifecycle,
// SSE message streaming, approval decisions, and sandbox file access.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mukhil0212/Sentinel-RAG/internal/patch"
	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
	"github.com/mukhil0212/Sentinel-RAG/internal/session"
)

// Server provides the HTTP surface over a session service.
type Server struct {
	echo     *echo.Echo
	sessions session.Service
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// SeedDir, when set, seeds every new session's sandbox with a copy of
	// this directory.
	SeedDir string
}

// NewServer creates an HTTP server over the session service.
func NewServer(sessions session.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8787}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		sessions: sessions,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/sessions", s.handleCreateSession)
	v1.DELETE("/sessions/:id", s.handleDestroySession)
	v1.POST("/sessions/:id/messages", s.handleSendMessage)
	v1.POST("/sessions/:id/approval", s.handleApproval)

	v1.PUT("/sessions/:id/files", s.handleUpsertFile)
	v1.GET("/sessions/:id/files", s.handleReadFile)
	v1.GET("/sessions/:id/files/list", s.handleListFiles)
	v1.DELETE("/sessions/:id/files", s.handleDeleteFile)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// SessionResponse describes a session to clients.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	SandboxID string `json:"sandbox_id"`
	State     string `json:"state"`
}

// MessageRequest is the request body for POST /sessions/:id/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// ApprovalRequest is the request body for POST /sessions/:id/approval.
type ApprovalRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// FileRequest is the request body for PUT /sessions/:id/files.
type FileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	var sess *session.Session
	var err error
	if s.config.SeedDir != "" {
		sess, err = s.sessions.CreateFrom(ctx, s.config.SeedDir)
	} else {
		sess, err = s.sessions.Create(ctx)
	}
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, SessionResponse{
		SessionID: sess.ID,
		SandboxID: sess.Sandbox.ID,
		State:     string(sess.State),
	})
}

func (s *Server) handleDestroySession(c echo.Context) error {
	if err := s.sessions.Destroy(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleApproval(c echo.Context) error {
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	decision, err := s.sessions.Approve(c.Request().Context(), c.Param("id"), req.Approved, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, decision)
}

func (s *Server) handleUpsertFile(c echo.Context) error {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	var req FileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path field is required")
	}

	if err := sess.WriteFile(req.Path, req.Content); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleReadFile(c echo.Context) error {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path query parameter is required")
	}

	content, err := sess.ReadFile(path)
	if err != nil {
		return httpError(err)
	}
	return c.String(http.StatusOK, content)
}

func (s *Server) handleListFiles(c echo.Context) error {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	maxDepth := 0
	if raw := c.QueryParam("max_depth"); raw != "" {
		maxDepth, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "max_depth must be an integer")
		}
	}

	listing, err := sess.ListFiles(c.QueryParam("path"), maxDepth)
	if err != nil {
		return httpError(err)
	}
	return c.String(http.StatusOK, listing)
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path query parameter is required")
	}

	if err := sess.DeleteFile(path); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// httpError maps engine errors onto HTTP statuses: containment violations
// are client errors, unknown sessions 404, approval without a proposal 409,
// and patch conflicts 422.
func httpError(err error) error {
	switch {
	case errors.Is(err, sandbox.ErrContainment):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNoPendingPatch):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, patch.ErrConflict), errors.Is(err, patch.ErrApprovalDenied):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case os.IsNotExist(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
