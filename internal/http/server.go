// Package http provides the HTTP API for momentd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/moments"
)

// HeaderUserID carries the caller's identity, set by the upstream auth
// gateway.
const HeaderUserID = "X-User-ID"

// MomentService is the moment and thought API served over HTTP.
type MomentService interface {
	CreateAndMatch(ctx context.Context, req moments.CreateRequest) (*moments.MomentWithMatches, error)
	EnrichAndRematch(ctx context.Context, userID, momentID, userContext string) (*moments.MomentWithMatches, error)
	RecordFeedback(ctx context.Context, userID, momentID, thoughtID string, helpful bool) error
	GetMoment(ctx context.Context, userID, momentID string) (*moments.MomentWithMatches, error)
	SetStatus(ctx context.Context, userID, momentID string, status moments.Status) (*moments.Moment, error)
	AddThought(ctx context.Context, userID, content, contextTag, source string) (*moments.Thought, error)
	ListThoughts(ctx context.Context, userID string) ([]moments.Thought, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server provides HTTP endpoints for momentd.
type Server struct {
	echo    *echo.Echo
	service MomentService
	checks  map[string]HealthCheck
	logger  *logging.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Option configures a Server.
type Option func(*Server, *serverOptions)

type serverOptions struct {
	meterProvider metric.MeterProvider
}

// WithHealthCheck adds a named dependency check to GET /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server, _ *serverOptions) {
		s.checks[name] = check
	}
}

// WithMeterProvider records request metrics on mp instead of the global
// provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(_ *Server, o *serverOptions) {
		o.meterProvider = mp
	}
}

// NewServer creates a new HTTP server.
func NewServer(service MomentService, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("moment service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	s := &Server{
		service: service,
		checks:  make(map[string]HealthCheck),
		logger:  logger.Named("http"),
		config:  cfg,
	}
	var o serverOptions
	for _, opt := range opts {
		opt(s, &o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	e.Use(NewHTTPMetrics(o.meterProvider, s.logger).MetricsMiddleware())

	s.echo = e
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/moments", s.handleCreateMoment)
	v1.GET("/moments/:id", s.handleGetMoment)
	v1.POST("/moments/:id/context", s.handleEnrichMoment)
	v1.POST("/moments/:id/feedback", s.handleFeedback)
	v1.POST("/moments/:id/status", s.handleSetStatus)
	v1.POST("/thoughts", s.handleAddThought)
	v1.GET("/thoughts", s.handleListThoughts)
}

// requestLogger puts the request and user IDs on the request context and
// logs every request once it completes.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
		if userID := req.Header.Get(HeaderUserID); userID != "" {
			ctx = logging.WithUserID(ctx, userID)
		}
		c.SetRequest(req.WithContext(ctx))

		err := next(c)
		if err != nil {
			// Resolve the status before logging it.
			c.Error(err)
		}

		s.logger.Info(ctx, "http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// handleHealth runs every registered check.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	code := http.StatusOK

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(c.Request().Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	return c.JSON(code, resp)
}

// toHTTPError maps service errors to responses. Internal errors are
// logged and never echoed to the caller.
func (s *Server) toHTTPError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, moments.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, moments.ErrNotFound), errors.Is(err, moments.ErrMatchNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		s.logger.Error(c.Request().Context(), "request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
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
