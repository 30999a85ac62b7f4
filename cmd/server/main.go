package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orderbot/internal/catalog"
	"orderbot/internal/config"
	"orderbot/internal/handler"
	applog "orderbot/internal/log"
	"orderbot/internal/repository"
	"orderbot/internal/service"
	"orderbot/internal/transport"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	applog.Configure(applog.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Version: Version,
	})
	logger := applog.WithComponent("server")
	logger.Info().
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting order assistant")

	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Commerce backend
	commerce := transport.NewCommerceClient(&cfg.Commerce, applog.WithComponent("commerce"))
	logger.Info().Str("base_url", cfg.Commerce.BaseURL).Msg("commerce client initialized")

	// Catalog source and turn log
	var (
		loader  catalog.Loader = transport.NewCatalogLoader(commerce)
		turns   service.TurnLogger
		history handler.TurnHistory
	)
	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer repo.Close()
		loader, turns, history = repo, repo, repo
		logger.Info().Msg("connected to PostgreSQL, catalog loads from the database mirror")
	} else {
		logger.Warn().Msg("PostgreSQL disabled, catalog loads from the commerce API and turns are not logged")
	}

	// Order ledger
	var ledger service.OrderLedger = service.NewMemoryLedger(cfg.Redis.LedgerTTL)
	if cfg.Redis.Enabled {
		redisLedger, err := repository.NewRedisLedger(cfg.Redis, applog.WithComponent("ledger"))
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory order ledger")
		} else {
			defer redisLedger.Close()
			ledger = redisLedger
		}
	}

	// Generative fallback
	var fallback *service.Fallback
	if cfg.Engine.FallbackEnabled {
		aiClient := service.NewOpenAIClient(&cfg.OpenAI, applog.WithComponent("openai"))
		fallback = service.NewFallback(aiClient, service.NewSanitizer(), cfg.Engine.ProductSampleSize, applog.WithComponent("fallback"))
		if cfg.OpenAI.Enabled {
			logger.Info().
				Str("api_base", cfg.OpenAI.APIBase).
				Str("chat_model", cfg.OpenAI.ChatModel).
				Float64("temperature", cfg.OpenAI.ChatTemperature).
				Int("max_tokens", cfg.OpenAI.ChatMaxTokens).
				Msg("generative fallback enabled")
		} else {
			logger.Warn().Msg("OPENAI_API_KEY not set, low-confidence turns get the menu")
		}
	}

	// Catalog snapshot
	store := catalog.NewStore()
	refresher := catalog.NewRefresher(store, loader, cfg.Catalog.RefreshInterval, cfg.Catalog.LoadTimeout, applog.WithComponent("catalog"))
	go refresher.Run(ctx)

	// Services
	engineLogger := applog.WithComponent("engine")
	engine := service.NewEngine(
		service.NewExtractor(),
		service.NewClassifier(),
		service.NewGate(cfg.Engine.ConfidenceThreshold, fallback, engineLogger),
		service.NewMachine(),
		service.NewPlanner(cfg.Engine.HistoryMax, cfg.Engine.ResultsPerPage),
		store,
		engineLogger,
	)
	executor := service.NewExecutor(commerce, ledger, applog.WithComponent("executor"))
	chatService := service.NewChatService(engine, executor, turns, applog.WithComponent("chat"))

	// Handlers
	chatHandler := handler.NewChatHandler(chatService)
	catalogHandler := handler.NewCatalogHandler(store, refresher)

	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(applog.WithComponent("http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		stats := store.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"service":          "orderbot",
			"version":          Version,
			"catalog_products": stats.Products,
			"catalog_loaded":   stats.LoadedAt,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.Chat)
		apiV1.POST("/chat/stream", chatHandler.ChatStream)

		apiV1.GET("/catalog", catalogHandler.Stats)
		apiV1.POST("/catalog/refresh", catalogHandler.Refresh)

		if history != nil {
			sessionHandler := handler.NewSessionHandler(history, 20, 100)
			apiV1.GET("/sessions/:id/turns", sessionHandler.Turns)
		}
	}

	// Implemented in embed.go (production) or static_dev.go (development)
	setupStaticFiles(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
