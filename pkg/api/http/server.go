package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aescanero/layoutcounter/internal/application/counters"
	"github.com/aescanero/layoutcounter/internal/application/health"
	"github.com/aescanero/layoutcounter/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	counters *counters.Manager
	health   *health.Monitor
	metrics  ports.MetricsCollector
	static   http.Handler
	logger   *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	// Addr is the listen address, e.g. ":3000"
	Addr     string
	Counters *counters.Manager
	// Health is optional; without it /health always reports healthy
	Health  *health.Monitor
	Metrics ports.MetricsCollector
	// MetricsHandler serves /metrics; defaults to promhttp.Handler()
	MetricsHandler http.Handler
	// PublicDir is served for unmatched GET requests; empty disables it
	PublicDir string
	Logger    *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(cfg.Logger))
	router.Use(requestMetrics(cfg.Metrics))
	router.Use(corsMiddleware())

	s := &Server{
		router:   router,
		counters: cfg.Counters,
		health:   cfg.Health,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if cfg.PublicDir != "" {
		s.static = http.FileServer(http.Dir(cfg.PublicDir))
	}

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	s.setupRoutes(metricsHandler)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(metricsHandler http.Handler) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(metricsHandler))

	// Counters
	s.router.GET("/data", s.handleData)
	s.router.GET("/update/:key/:value", s.handleUpdate)

	// Everything else comes from the public directory
	s.router.NoRoute(s.handleStatic)
}

// SetupWebSocket adds the live update handler to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	if wsHandler, ok := handler.(interface {
		HandleCounterStream(*gin.Context)
	}); ok {
		s.router.GET("/ws", wsHandler.HandleCounterStream)
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return s.Serve(l)
}

// Serve serves on an existing listener
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", l.Addr().String()))

	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
