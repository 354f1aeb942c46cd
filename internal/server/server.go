// Package server provides the remedyd status HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/scoring"
)

// Status is the response body for GET /api/v1/status.
type Status struct {
	RunID                string  `json:"run_id"`
	Status               string  `json:"status"`
	CycleIndex           int     `json:"cycle_index"`
	ConsecutiveSuccesses int     `json:"consecutive_successes"`
	EffectivenessRatio   float64 `json:"effectiveness_ratio"`
	TierLevel            int     `json:"tier_level"`
	SpaceSize            int     `json:"space_size"`
	Sampled              int     `json:"sampled"`
	Blacklisted          int     `json:"blacklisted"`
}

// StatusFunc produces a point-in-time status snapshot.
type StatusFunc func() Status

// Server exposes engine state over HTTP while a run or the background
// monitor is active. All endpoints are read-only.
type Server struct {
	echo   *echo.Echo
	status StatusFunc
	scores *scoring.Table
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new status server.
func NewServer(status StatusFunc, scores *scoring.Table, logger *zap.Logger, cfg *Config) (*Server, error) {
	if status == nil {
		return nil, fmt.Errorf("status func cannot be nil")
	}
	if scores == nil {
		return nil, fmt.Errorf("score table cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9464,
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
		echo:   e,
		status: status,
		scores: scores,
		logger: logger,
		config: cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// Prometheus scrape endpoint
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/scores", s.handleScores)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ScoresResponse is the response body for GET /api/v1/scores.
type ScoresResponse struct {
	Weights     []scoring.Entry `json:"weights"`
	Blacklisted int             `json:"blacklisted"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus returns the current run status.
func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status())
}

// handleScores returns the learned per-dimension weights.
func (s *Server) handleScores(c echo.Context) error {
	return c.JSON(http.StatusOK, ScoresResponse{
		Weights:     s.scores.Snapshot(),
		Blacklisted: s.scores.BlacklistSize(),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting status server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down status server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
