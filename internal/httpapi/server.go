// Package httpapi provides the HTTP API for productflow.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/billing"
	"github.com/fyrsmithlabs/productflow/internal/blob"
	"github.com/fyrsmithlabs/productflow/internal/insights"
	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/research"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

// actorContextKey holds the authenticated actor id on the echo context.
const actorContextKey = "actorID"

// actorHeader identifies the acting user. The deployment fronts this service
// with an authenticating proxy that sets it.
const actorHeader = "X-Actor-ID"

// Server provides HTTP endpoints for productflow.
type Server struct {
	echo     *echo.Echo
	store    *store.Store
	limiter  *billing.Limiter
	blobs    blob.Store
	insights *insights.Service
	research *research.Service
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// StorageRoot, when set, is served at /files so stored blob URLs
	// resolve against this server.
	StorageRoot string
}

// NewServer creates a new HTTP server.
func NewServer(st *store.Store, limiter *billing.Limiter, blobs blob.Store, insightsSvc *insights.Service, researchSvc *research.Service, logger *logging.Logger, cfg *Config) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if insightsSvc == nil {
		return nil, fmt.Errorf("insights service is required")
	}
	if researchSvc == nil {
		return nil, fmt.Errorf("research service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
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

			logger.Info(c.Request().Context(), "http request",
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
		store:    st,
		limiter:  limiter,
		blobs:    blobs,
		insights: insightsSvc,
		research: researchSvc,
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

	if s.config.StorageRoot != "" {
		s.echo.Static("/files", s.config.StorageRoot)
	}

	v1 := s.echo.Group("/api/v1", s.actorMiddleware)

	v1.GET("/projects", s.handleListProjects)
	v1.POST("/projects", s.handleCreateProject)
	v1.GET("/projects/:id", s.handleGetProject)
	v1.PATCH("/projects/:id", s.handleUpdateProject)
	v1.DELETE("/projects/:id", s.handleDeleteProject)
	v1.GET("/projects/:id/stats", s.handleProjectStats)

	v1.GET("/projects/:id/files", s.handleListFiles)
	v1.POST("/projects/:id/files", s.handleUploadFile)
	v1.DELETE("/projects/:id/files/:fileID", s.handleDeleteFile)

	v1.GET("/projects/:id/analyses", s.handleListAnalyses)
	v1.POST("/projects/:id/analyses", s.handleRunAnalysis)
	v1.GET("/projects/:id/analyses/:analysisID", s.handleGetAnalysis)

	v1.GET("/projects/:id/proposals", s.handleListProposals)
	v1.POST("/projects/:id/proposals", s.handleGenerateProposals)
	v1.GET("/projects/:id/proposals/:proposalID", s.handleGetProposal)
	v1.PATCH("/projects/:id/proposals/:proposalID/status", s.handleUpdateProposalStatus)

	v1.GET("/projects/:id/tasks", s.handleListProjectTasks)
	v1.GET("/projects/:id/proposals/:proposalID/tasks", s.handleListProposalTasks)
	v1.POST("/projects/:id/proposals/:proposalID/tasks", s.handleGenerateTasks)
	v1.PATCH("/projects/:id/tasks/:taskID/status", s.handleUpdateTaskStatus)

	v1.GET("/projects/:id/research", s.handleListResearch)
	v1.POST("/projects/:id/research", s.handleStartResearch)
	v1.GET("/projects/:id/research/:researchID", s.handleGetResearch)
	v1.DELETE("/projects/:id/research/:researchID", s.handleDeleteResearch)
	v1.GET("/projects/:id/research/:researchID/findings", s.handleListFindings)

	v1.GET("/billing/plans", s.handleListPlans)
	v1.GET("/billing/usage", s.handleUsage)
}

// actorMiddleware resolves the acting user once per request.
func (s *Server) actorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(actorHeader)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing actor header")
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid actor header")
		}
		c.Set(actorContextKey, uint(id))

		ctx := logging.WithActorID(c.Request().Context(), uint(id))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// actorID returns the authenticated actor id set by actorMiddleware.
func actorID(c echo.Context) uint {
	id, _ := c.Get(actorContextKey).(uint)
	return id
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return uint(id), nil
}

// mapError converts service errors to HTTP errors.
func mapError(err error) error {
	var limitErr *billing.LimitError
	switch {
	case errors.As(err, &limitErr):
		return echo.NewHTTPError(http.StatusForbidden, limitErr.Error())
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, insights.ErrNoDataFiles),
		errors.Is(err, insights.ErrAnalysisNotCompleted),
		errors.Is(err, research.ErrEmptyURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
