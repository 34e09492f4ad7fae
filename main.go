package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"civicsync/config"
	"civicsync/media"
	"civicsync/middlewares"
	"civicsync/routes"
	"civicsync/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration", "err", err)
	}

	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatal("Invalid log level", "err", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, redisClient, err := config.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", "driver", cfg.StorageDriver, "err", err)
	}
	defer kv.Close()
	logger.Info("storage ready", "driver", cfg.StorageDriver)

	issues := store.NewIssueStore(ctx, kv, cfg.IssuesKey, store.WithLogger(logger))
	sessions := store.NewSessionStore(ctx, kv, cfg.SessionKey,
		store.WithLogger(logger), store.WithTokenSecret(cfg.SessionSecret))

	if redisClient == nil && cfg.RedisAddress != "" {
		redisClient, err = config.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "err", err)
		}
		defer redisClient.Close()
	}

	var limiter middlewares.IssueLimiter
	if redisClient != nil {
		limiter = middlewares.NewRedisLimiter(redisClient, cfg.IssueLimitPrefix, cfg.IssueCreateLimit)
	} else {
		limiter = middlewares.NewLocalLimiter(cfg.IssueCreateLimit, middlewares.LimitWindow)
	}

	uploader := media.NewUploader(cfg.Media, media.WithLogger(logger))
	if !uploader.Remote() {
		logger.Warn("no media host configured, attachments will be inlined as data URLs")
	}

	r := routes.NewRouter(routes.Dependencies{
		Issues:      issues,
		Sessions:    sessions,
		Uploader:    uploader,
		Limiter:     limiter,
		Logger:      logger,
		CORSOrigins: cfg.CORSAllowOrigins,
	})

	logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", "err", err)
	}
}
