package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbasli/bdrive/config"
	"github.com/bbasli/bdrive/database"
	"github.com/bbasli/bdrive/handlers"
	"github.com/bbasli/bdrive/logger"
	"github.com/bbasli/bdrive/middleware"
	"github.com/bbasli/bdrive/repositories"
	"github.com/bbasli/bdrive/services"
	"github.com/bbasli/bdrive/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := os.Getenv("BDRIVE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("load config failed", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Setup(cfg.Log)
	slog.Info("starting bdrive service")

	if err := database.InitDatabase(&cfg.Database); err != nil {
		slog.Error("init database failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.InitRedis(&cfg.Redis); err != nil {
		slog.Error("init redis failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		slog.Error("init storage failed", slog.String("driver", cfg.Storage.Driver), slog.Any("error", err))
		os.Exit(1)
	}

	repoContainer := repositories.NewGormRepositories(database.DB, database.RedisClient).BuildContainer()
	serviceContainer := services.NewContainer(repoContainer, store)
	handlers.SetServices(serviceContainer)

	services.StartCleanupWorkers(ctx)
	slog.Info("cleanup workers started", slog.Duration("interval", cfg.Trash.Interval()))

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.RequestLogger(), middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	setupRoutes(r, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server start failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.Any("error", err))
	}
	if err := database.RedisClient.Close(); err != nil {
		slog.Warn("redis close failed", slog.Any("error", err))
	}
}

func setupRoutes(r *gin.Engine, cfg *config.Config) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/storage/*key", handlers.ServeObject)

	internal := r.Group("/internal")
	internal.Use(middleware.RequireSecret(middleware.InternalSecretHeader, cfg.Auth.InternalSecret))
	{
		internal.POST("/sweep", handlers.RunSweep)
	}

	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)
	api.POST("/storage/upload/:storage_id", handlers.ReceiveUpload)
	api.POST("/webhooks/identity", middleware.RequireSecret(middleware.WebhookSecretHeader, cfg.Auth.WebhookSecret), handlers.IdentityWebhook)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.Auth))
	{
		authed.GET("/users/me", handlers.GetMe)
		authed.GET("/users/:id/profile", handlers.GetUserProfile)

		authed.POST("/files/upload-url", handlers.GenerateUploadURL)
		authed.POST("/files", handlers.UploadFile)
		authed.GET("/files", handlers.ListFiles)
		authed.DELETE("/files/:id", handlers.DeleteFile)
		authed.POST("/files/:id/restore", handlers.RestoreFile)
		authed.POST("/files/:id/favorite", handlers.ToggleFavorite)
	}
}
