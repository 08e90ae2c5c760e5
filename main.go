// File: broadway/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broadway/config"
	"broadway/cron"
	"broadway/database"
	catalogRepo "broadway/database/repository/catalog"
	ordersRepo "broadway/database/repository/orders"
	transcriptRepo "broadway/database/repository/transcript"
	"broadway/handlers"
	"broadway/middleware"
	"broadway/routes"
	"broadway/services/cart"
	"broadway/services/catalog"
	ai "broadway/services/intelligence"
	"broadway/services/notification"
	"broadway/services/tasks"
	"broadway/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const catalogCacheTTL = 10 * time.Minute

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.RunMigrations {
		if err := database.RunMigrations(cfg.PostgresURL); err != nil {
			logger.Sugar().Fatalf("main: failed to run migrations: %v", err)
		}
	}
	database.InitPostgres()
	defer database.ClosePostgres()
	database.InitDB()
	defer database.CloseDB()
	utils.InitSessionCache()
	utils.StartHealthMonitor(rootCtx, utils.GetSessionCacheClient(), database.MongoClient, database.PgPool)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RequestLoggerMiddleware(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	// repositories.
	menuRepo := catalogRepo.NewPgCatalogRepo(database.PgPool)
	orderRepo := ordersRepo.NewPgOrderRepo(database.PgPool)
	transcripts := transcriptRepo.NewMongoTranscriptRepo(database.MongoDatabase(), logger)

	// model.
	gemini, err := ai.NewGeminiClient(rootCtx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiSummaryModel)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize gemini client: %v", err)
	}
	defer gemini.Close()

	// services.
	catalogService := catalog.NewDefaultCatalogService(menuRepo, cfg.Currency, catalogCacheTTL, logger)
	cartService := cart.NewDefaultCartService(catalogService)
	memory := ai.NewTranscriptMemory(transcripts, gemini, cfg.HistoryBufferSize, cfg.SummaryThreshold, logger)

	queue := asynq.NewClient(utils.QueueRedisOpt())
	defer queue.Close()
	worker := cron.NewSummaryWorker(utils.QueueRedisOpt(), memory, logger)
	worker.Start(rootCtx)
	defer worker.Shutdown()

	notifier, err := notification.NewOrderNotifier(cfg.RabbitMQURL, cfg.OrderExchange, logger)
	if err != nil {
		logger.Warn("order notifications disabled", zap.Error(err))
		notifier = notification.NoopNotifier{}
	}
	defer notifier.Close()

	orchestrator := ai.NewOrchestrator(ai.Deps{
		Store:     ai.NewRedisStateStore(utils.GetSessionCacheClient(), cfg.SessionTTL),
		Intents:   ai.NewRuleResolver(),
		Catalog:   catalogService,
		Cart:      cartService,
		Model:     gemini,
		Memory:    memory,
		Ledger:    orderRepo,
		Notifier:  notifier,
		Scheduler: tasks.NewAsynqScheduler(queue),
	}, ai.Options{
		Currency:          cfg.Currency,
		ModelTimeout:      cfg.ModelTimeout,
		ContextMaxChars:   cfg.ContextMaxChars,
		MaxUtteranceChars: cfg.MaxUtteranceChars,
	}, logger)

	chatHandler := handlers.NewChatHandler(orchestrator, cfg.Currency)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderRepo)

	voiceTurn := func(c *gin.Context) {
		utils.JSONError(c, http.StatusServiceUnavailable, "voice input is not available", "")
	}
	if transcriber, err := ai.NewGoogleTranscriber(rootCtx, cfg.GoogleServiceAccountFile); err != nil {
		logger.Warn("voice input disabled", zap.Error(err))
	} else {
		defer transcriber.Close()
		voiceTurn = handlers.NewVoiceHandler(orchestrator, transcriber).AISTTHandler
	}

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// Chat endpoints.
		ChatTurnHandler:    chatHandler.TurnHandler,
		ChatVoiceHandler:   voiceTurn,
		ChatCartHandler:    chatHandler.CartHandler,
		ChatHistoryHandler: chatHandler.HistoryHandler,
		ChatResetHandler:   chatHandler.ResetHandler,

		// Catalog endpoints.
		MenuHandler:       catalogHandler.MenuHandler,
		CategoriesHandler: catalogHandler.CategoriesHandler,
		DealsHandler:      catalogHandler.DealsHandler,
		InfoHandler:       catalogHandler.InfoHandler,

		// Order endpoints.
		GetOrderHandler: orderHandler.GetOrderHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
