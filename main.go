package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/openclass/quiz-service/internal/auth"
	"github.com/openclass/quiz-service/internal/config"
	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/handlers"
	"github.com/openclass/quiz-service/internal/repositories/postgres"
	"github.com/openclass/quiz-service/internal/services"
	"github.com/openclass/quiz-service/internal/utils"
	"github.com/openclass/quiz-service/internal/validator"
	"github.com/openclass/quiz-service/pkg/database"
	"github.com/openclass/quiz-service/pkg/redisclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.Environment)

	db, err := database.Connect(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// The cache is optional; the service runs degraded without Redis.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redisclient.New(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	repo := postgres.NewRepository(db, redisClient)
	if err := repo.Migrate(); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Error("kafka publisher failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("no kafka brokers configured, events disabled")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	manager, err := services.NewManager(services.ManagerConfig{
		Repo:      repo,
		Hasher:    auth.NewPasswordHasher(cfg.BcryptCost),
		Tokens:    tokens,
		Publisher: publisher,
		Validator: validator.New(),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("service wiring failed", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(manager, tokens, repo, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown forced", "error", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("publisher close failed", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		logger.Error("repository close failed", "error", err)
	}
	logger.Info("stopped")
}
