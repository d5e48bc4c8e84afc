// Package http serves the perceptd REST API: utterance analysis from text or
// audio, memory recall and Prometheus metrics.
package http

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/memory"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
	"github.com/fyrsmithlabs/perceptd/internal/transcribe"
)

// Server provides HTTP endpoints for perceptd.
type Server struct {
	echo        *echo.Echo
	perception  *perception.Service
	memory      *memory.Manager
	transcriber transcribe.Transcriber
	logger      *zap.Logger
	config      *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit float64
	// MaxUploadSize bounds request bodies in bytes. Zero means 25 MiB.
	MaxUploadSize int64
	Version       string
}

// Deps are the services behind the API. Memory and Transcriber are
// optional; their routes answer 503 when absent.
type Deps struct {
	Perception  *perception.Service
	Memory      *memory.Manager
	Transcriber transcribe.Transcriber
}

const defaultMaxUploadSize = 25 << 20

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Perception == nil {
		return nil, fmt.Errorf("perception service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})
	e.Use(newRequestMetrics(nil, logger).middleware())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.MaxUploadSize)))
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/health" || c.Path() == "/metrics"
			},
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(cfg.RateLimit),
				Burst: max(1, int(cfg.RateLimit)),
			}),
		}))
	}

	s := &Server{
		echo:        e,
		perception:  deps.Perception,
		memory:      deps.Memory,
		transcriber: deps.Transcriber,
		logger:      logger,
		config:      cfg,
	}
	s.registerRoutes()

	return s, nil
}

// requestContext copies the request ID into the request context so logs
// written further down carry request.id. Client-supplied IDs that fail
// validation are left off the context.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if logging.ValidateID(rid, "request_id") == nil {
				req := c.Request()
				c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), rid)))
			}
			return next(c)
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyzeAudio)
	v1.POST("/analyze/text", s.handleAnalyzeText)

	v1.GET("/memory/working", s.handleWorkingMemory)
	v1.DELETE("/memory/working", s.handleClearWorkingMemory)
	v1.GET("/memory/long-term", s.handleLongTermMemory)
	v1.PUT("/memory/long-term/:id", s.handleUpdateLongTerm)
	v1.GET("/context", s.handleContext)
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() *echo.Echo {
	return s.echo
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
