// Package main runs the club platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/college-clubs/backend/config"
	"github.com/college-clubs/backend/internal/applications"
	"github.com/college-clubs/backend/internal/auth"
	"github.com/college-clubs/backend/internal/middleware"
	"github.com/college-clubs/backend/internal/posts"
	"github.com/college-clubs/backend/internal/worker"
	"github.com/college-clubs/backend/pkg/database"
	"github.com/college-clubs/backend/pkg/queue"
	"github.com/college-clubs/backend/pkg/redis"
	"github.com/college-clubs/backend/pkg/response"
	"github.com/college-clubs/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	var jobQueue *queue.Queue
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, media cleanup disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			MediaBucket:     cfg.AWS.MediaBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Accounts
	authRepo := auth.NewRepository(pool)
	if err := auth.EnsureSuperAdmin(ctx, authRepo, cfg.Seed, logger); err != nil {
		logger.Fatal("seed super admin", zap.Error(err))
	}

	// The handlers hold interfaces; only hand them a store/queue that exists,
	// a typed nil pointer would slip past their nil checks.
	var authMedia auth.MediaStore
	var postMedia posts.MediaStore
	if s3Client != nil {
		authMedia, postMedia = s3Client, s3Client
	}
	var authCleanup auth.CleanupQueue
	var postCleanup posts.CleanupQueue
	if jobQueue != nil {
		authCleanup, postCleanup = jobQueue, jobQueue
	}

	// Posts
	postRepo := posts.NewRepository(pool)
	postHandler := posts.NewHandler(postRepo, postMedia, postCleanup, logger)

	authHandler := auth.NewHandler(authRepo, postRepo, jwtService, authMedia, authCleanup, logger)

	// Applications
	appRepo := applications.NewRepository(pool)
	appHandler := applications.NewHandler(appRepo, authRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public
	router.POST("/auth/login", authHandler.Login)
	router.GET("/auth/clubs", authHandler.ListClubs)
	router.GET("/auth/clubs/:id", authHandler.GetClub)
	router.GET("/posts/feed", postHandler.Feed)
	router.GET("/posts/club/:id", postHandler.ByClub)
	router.POST("/applications", appHandler.Submit)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.PUT("/auth/password", authHandler.ChangePassword)
		api.PUT("/auth/profile/logo", authHandler.UpdateLogo)
		api.PUT("/auth/profile/banner", authHandler.UpdateBanner)

		// Super admin: club account management
		api.POST("/auth/clubs", middleware.RequireSuperAdmin(), authHandler.RegisterClub)
		api.GET("/auth/clubs-all", middleware.RequireSuperAdmin(), authHandler.ListClubs)
		api.DELETE("/auth/clubs/:id", middleware.RequireSuperAdmin(), authHandler.DeleteClub)

		api.POST("/posts", postHandler.Create)
		api.GET("/posts/mine", postHandler.Mine)
		api.DELETE("/posts/:id", postHandler.Delete)

		api.GET("/applications/mine", appHandler.Mine)
		api.PUT("/applications/:id/status", appHandler.UpdateStatus)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background media cleanup worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil && jobQueue != nil {
		cleanup := worker.NewCleanupProcessor(s3Client, jobQueue, logger)
		go cleanup.Run(workerCtx)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
