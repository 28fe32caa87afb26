// Package http exposes the resolution pipeline over a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/resolve"
)

// maxTicketLength rejects oversized ticket bodies before they reach the
// pipeline.
const maxTicketLength = 20000

// Resolver is the pipeline surface the server depends on. Satisfied by
// resolve.Pipeline.
type Resolver interface {
	Resolve(ctx context.Context, ticket, category string, useWebSearch bool) resolve.Resolution
	CategorizeTicket(ctx context.Context, text string) (category, method string)
	WebSearchEnabled() bool
	RetrieverAvailable() bool
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server hosts the ticket resolution API.
type Server struct {
	echo     *echo.Echo
	resolver Resolver
	logger   *zap.Logger
	config   Config
}

// NewServer creates the HTTP server and registers routes.
func NewServer(resolver Resolver, logger *zap.Logger, cfg Config) (*Server, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8092
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

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
	e.Use(NewHTTPMetrics(logger).Middleware())

	s := &Server{
		echo:     e,
		resolver: resolver,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/tickets/resolve", s.handleResolve)
	v1.POST("/tickets/categorize", s.handleCategorize)
	v1.GET("/search/status", s.handleSearchStatus)
}

// ResolveRequest is the body for POST /api/v1/tickets/resolve.
type ResolveRequest struct {
	Content      string `json:"content"`
	Category     string `json:"category,omitempty"`
	UseWebSearch bool   `json:"use_web_search,omitempty"`
}

// CategorizeRequest is the body for POST /api/v1/tickets/categorize.
type CategorizeRequest struct {
	Content string `json:"content"`
}

// CategorizeResponse is the body returned by the categorize endpoint.
type CategorizeResponse struct {
	Category string `json:"category"`
	Method   string `json:"method"`
}

// SearchStatusResponse reports which optional capabilities are active.
type SearchStatusResponse struct {
	WebSearchEnabled   bool `json:"web_search_enabled"`
	RetrieverAvailable bool `json:"retriever_available"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleResolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid resolve request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}
	if len(req.Content) > maxTicketLength {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "content exceeds maximum length")
	}

	res := s.resolver.Resolve(c.Request().Context(), req.Content, req.Category, req.UseWebSearch)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleCategorize(c echo.Context) error {
	var req CategorizeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid categorize request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}
	if len(req.Content) > maxTicketLength {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "content exceeds maximum length")
	}

	category, method := s.resolver.CategorizeTicket(c.Request().Context(), req.Content)
	return c.JSON(http.StatusOK, CategorizeResponse{Category: category, Method: method})
}

func (s *Server) handleSearchStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, SearchStatusResponse{
		WebSearchEnabled:   s.resolver.WebSearchEnabled(),
		RetrieverAvailable: s.resolver.RetrieverAvailable(),
	})
}

// Start starts the HTTP server. Blocks until shutdown or failure.
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
