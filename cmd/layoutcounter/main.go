package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/layoutcounter/internal/application/counters"
	"github.com/aescanero/layoutcounter/internal/application/health"
	"github.com/aescanero/layoutcounter/internal/config"
	redisevents "github.com/aescanero/layoutcounter/pkg/adapters/events/redis"
	"github.com/aescanero/layoutcounter/pkg/adapters/metrics/prometheus"
	redisstorage "github.com/aescanero/layoutcounter/pkg/adapters/storage/redis"
	"github.com/aescanero/layoutcounter/pkg/api/grpc"
	"github.com/aescanero/layoutcounter/pkg/api/http"
	"github.com/aescanero/layoutcounter/pkg/api/websocket"

	prom "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting layout counter service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	// Initialize adapters
	counterStorage := redisstorage.NewCounterStorage(
		redisClient,
		logger,
		redisstorage.WithKeyPrefix(cfg.Counters.KeyPrefix),
		redisstorage.WithCASRetries(cfg.Counters.CASRetries),
	)

	eventBus := redisevents.NewPubSubEventBus(redisClient, cfg.Counters.EventsPrefix, logger)

	metricsCollector := prometheus.NewCollector(prom.DefaultRegisterer)

	// Initialize application components
	counterMgr := counters.NewManager(
		counterStorage,
		eventBus,
		metricsCollector,
		counters.NewValidator(),
		logger,
		cfg.Counters.IncrementStrategy,
	)

	// Reset counters. A failure is logged and the service still starts.
	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.Timeouts.InitTimeout)
	if err := counterMgr.Initialize(initCtx); err != nil {
		logger.Warn("serving without initialized counters", zap.String("redis_addr", cfg.Redis.Addr))
	}
	cancelInit()

	healthMonitor := health.NewMonitor(counterStorage, metricsCollector, cfg.HealthCheckInterval, logger)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Addr:      cfg.GetHTTPAddr(),
		Counters:  counterMgr,
		Health:    healthMonitor,
		Metrics:   metricsCollector,
		PublicDir: cfg.PublicDir,
		Logger:    logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, counterMgr.Snapshot, logger)
	httpServer.SetupWebSocket(wsHandler)

	var grpcServer *grpc.Server
	if cfg.GRPCEnabled {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Addr:   cfg.GetGRPCAddr(),
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
		healthMonitor.OnChange(grpcServer.SetServing)
	}

	healthMonitor.Start()

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Fatal("gRPC server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("layout counter service started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.Bool("grpc_enabled", cfg.GRPCEnabled),
		zap.String("grpc_addr", cfg.GetGRPCAddr()),
		zap.String("increment_strategy", counterMgr.Strategy()),
		zap.String("public_dir", cfg.PublicDir))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	healthMonitor.Stop()

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("layout counter service shut down complete")
}
