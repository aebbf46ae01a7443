package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/internal/adapter/handler"
	"github.com/johnquangdev/notetaker/internal/adapter/repository"
	"github.com/johnquangdev/notetaker/internal/editor/markdown"
	"github.com/johnquangdev/notetaker/internal/infrastructure/cache"
	"github.com/johnquangdev/notetaker/internal/infrastructure/database"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
	noteUsecase "github.com/johnquangdev/notetaker/internal/usecase/note"
	recordingUsecase "github.com/johnquangdev/notetaker/internal/usecase/recording"
	pkgai "github.com/johnquangdev/notetaker/pkg/ai"
	"github.com/johnquangdev/notetaker/pkg/config"
	pkgvalidator "github.com/johnquangdev/notetaker/pkg/validator"
)

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.6 init -g cmd/api/main.go -d ../../ -o ../../docs --parseInternal

// @title           Notetaker API
// @version         1.0
// @description     Rich-text notes with image uploads and Markdown, plus diarized recording transcripts.

// @BasePath  /v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("25M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, handler.OwnerHeader, pkgai.WebhookHeader},
	}))

	logger.Info("🔧 Initializing dependencies...")

	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	// Schema is applied with sql-migrate; DB_AUTO_MIGRATE runs the same
	// migrations at startup.
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, cfg.Database.Migrations, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	} else {
		logger.Info("🔄 Skipping migrations; run scripts/migrate.go to apply them")
	}

	var store cache.Store
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		store = cache.NewRedisStore(redisClient, "notetaker:")
		logger.Info("📦 Presigned URLs cached in Redis", zap.String("host", cfg.Redis.Host))
	} else {
		store = cache.NewMemoryStore()
		logger.Info("📦 Presigned URLs cached in memory")
	}
	defer store.Close()

	minioClient, err := storage.NewMinIOClient(&cfg.Storage, store, logger)
	if err != nil {
		logger.Fatal("Failed to create MinIO client", zap.Error(err))
	}

	asmClient := pkgai.NewAssemblyAIClient(&cfg.Assembly, logger)
	if !asmClient.UsesWebhook() {
		logger.Info("🎙️ No webhook configured, transcription jobs will be polled",
			zap.Duration("interval", cfg.Assembly.PollInterval))
	}

	noteRepo := repository.NewNoteRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	personRepo := repository.NewPersonRepository(db)

	uploader := noteUsecase.NewImageUploader(minioClient, nil, noteUsecase.DefaultMaxConcurrentUploads, logger)
	noteService := noteUsecase.NewNoteService(noteRepo, minioClient, uploader, noteUsecase.Config{
		HistoryLimit:  cfg.Editor.HistoryLimit,
		CaptionSyntax: markdown.CaptionSyntax(cfg.Editor.CaptionSyntax),
	}, logger)

	recordingService := recordingUsecase.NewRecordingService(
		recordingRepo,
		segmentRepo,
		personRepo,
		minioClient,
		asmClient,
		recordingUsecase.Config{
			GapThreshold: cfg.Transcript.GapThreshold,
			PollInterval: cfg.Assembly.PollInterval,
		},
		logger,
	)
	defer recordingService.Close()

	router := handler.NewRouter(
		cfg,
		handler.NewNoteHandler(noteService, logger),
		handler.NewRecordingHandler(recordingService, logger),
		handler.NewWebhookHandler(recordingService, cfg.Assembly.WebhookSecret, logger),
	)
	router.Setup(e)

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("🚀 Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
	}
	uploader.Wait()

	logger.Info("✅ Server stopped gracefully")
}
