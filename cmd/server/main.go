package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameforge-server/internal/cache"
	"gameforge-server/internal/clients"
	"gameforge-server/internal/config"
	"gameforge-server/internal/database"
	"gameforge-server/internal/handler"
	"gameforge-server/internal/logger"
	"gameforge-server/internal/repository"
	"gameforge-server/internal/service"
	"gameforge-server/internal/session"
	"gameforge-server/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	generationWorkers = 4
	shutdownTimeout   = 10 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	dbPool, err := database.NewPool(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := database.ApplyMigrations(dbPool, zapLogger); err != nil {
		zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// --- Object storage ---
	imageStore, err := storage.NewBlobImageStore(ctx, cfg.ImageBucketURL, cfg.ImagePublicBase, cfg.ImageFetchTimeout, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open image bucket", zap.Error(err))
	}
	defer imageStore.Close()

	// --- Repositories ---
	buildRepo := repository.NewPgBuildRepository(dbPool, zapLogger)
	versionRepo := repository.NewPgBuildVersionRepository(dbPool, zapLogger)
	coinRepo := repository.NewPgCoinRepository(dbPool, zapLogger)

	// --- External clients ---
	sessionClient := session.NewOpenAIClient(session.OpenAIConfig{
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		AssistantID: cfg.AIAssistantID,
		Model:       cfg.AIModel,
		Timeout:     cfg.AITimeout,
	}, zapLogger)

	aiConfig := openai.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		aiConfig.BaseURL = cfg.AIBaseURL
	}
	aiConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
	aiClient := openai.NewClientWithConfig(aiConfig)

	identityClient := clients.NewHTTPIdentityClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey, zapLogger)

	controller := session.NewController(sessionClient, session.ControllerConfig{
		CancelPollMaxAttempts: cfg.CancelPollMaxAttempts,
		CancelPollBaseDelay:   cfg.CancelPollBaseDelay,
		CancelPollMaxDelay:    cfg.CancelPollMaxDelay,
		SettlingDelay:         cfg.SettlingDelay,
		SubmitMaxAttempts:     cfg.SubmitMaxRetries,
		SubmitBaseBackoff:     cfg.SubmitBaseBackoff,
	}, zapLogger)

	// --- Services ---
	artifactCache := cache.NewRedisArtifactCache(redisClient, cfg.ArtifactCacheTTL, zapLogger)
	contentGenerator := service.NewOpenAIContentGenerator(aiClient, zapLogger)

	buildService := service.NewBuildService(buildRepo, versionRepo, identityClient, artifactCache, cfg.MinCreatorScore, zapLogger)
	updateService := service.NewUpdateService(buildRepo, versionRepo, artifactCache, zapLogger)
	versionService := service.NewVersionService(buildRepo, versionRepo, artifactCache, zapLogger)
	chatService := service.NewChatService(buildRepo, updateService, controller, sessionClient, zapLogger)
	coinService := service.NewCoinService(buildRepo, coinRepo, zapLogger)
	generationService := service.NewGenerationService(buildRepo, sessionClient, contentGenerator, imageStore, cfg.DispatchMaxAttempts, zapLogger)
	generationService.Start(ctx, generationWorkers)

	// --- HTTP server ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.ZapLoggingMiddleware(zapLogger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	prom := ginprometheus.NewPrometheus("gameforge")
	prom.Use(router)

	gameforgeHandler := handler.NewGameForgeHandler(
		buildService, versionService, chatService, updateService, coinService, generationService, zapLogger)
	gameforgeHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("GameForge server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	zapLogger.Info("Server stopped")
}
