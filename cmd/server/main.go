package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/configs"
	"github.com/henzogomes/git-shame/internal/application/services"
	"github.com/henzogomes/git-shame/internal/core/ports"
	"github.com/henzogomes/git-shame/internal/infrastructure/db"
	"github.com/henzogomes/git-shame/internal/infrastructure/github"
	"github.com/henzogomes/git-shame/internal/infrastructure/health"
	"github.com/henzogomes/git-shame/internal/infrastructure/httpserver"
	"github.com/henzogomes/git-shame/internal/infrastructure/llm"
	infraRedis "github.com/henzogomes/git-shame/internal/infrastructure/redis"
	"github.com/henzogomes/git-shame/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting git-shame...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Rate limiter: in-process counters by default, Redis-backed when a
	// multi-process deployment needs shared windows.
	var limiter ports.RateLimiter
	healthCheckers := []ports.HealthChecker{health.NewDBHealthChecker(database)}

	if cfg.RateLimit.Backend == "redis" {
		redisClient, err := infraRedis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")

		limiter = repositories.NewRedisRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, cfg.RateLimit.KeyPrefix)
		healthCheckers = append(healthCheckers, health.NewRedisHealthChecker(redisClient))
	} else {
		limiter = repositories.NewMemoryRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}

	// Wire repositories and external collaborators
	cacheRepo := repositories.NewRoastCacheRepository(database, cfg.Cache.Freshness, logger)
	profileFetcher := github.NewClient(&cfg.GitHub, logger)
	generator := llm.NewOpenAIGenerator(&cfg.OpenAI, logger)

	roastService := services.NewRoastService(cacheRepo, limiter, profileFetcher, generator, &services.RoastServiceConfig{
		Model:        cfg.OpenAI.Model,
		CacheEnabled: cfg.Cache.Enabled,
	}, logger)
	avatarService := services.NewAvatarService(cacheRepo, profileFetcher, logger)

	// Retention sweep runs for the life of the process
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := services.NewSweeper(cacheRepo, cfg.Cache.Retention, cfg.Cache.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		TLSCertFile:   cfg.Server.TLSCertFile,
		TLSKeyFile:    cfg.Server.TLSKeyFile,
		AdminSecret:   cfg.Admin.Secret,
		StreamEnabled: cfg.Cache.StreamEnabled,
	}

	deps := httpserver.ServerDeps{
		RoastService:   roastService,
		AvatarService:  avatarService,
		CacheRepo:      cacheRepo,
		HealthCheckers: healthCheckers,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopSweep()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
