package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/supportiq/backend/internal/analysis"
	"github.com/supportiq/backend/internal/api/handlers"
	"github.com/supportiq/backend/internal/cache/redis"
	"github.com/supportiq/backend/internal/llm"
	"github.com/supportiq/backend/internal/metrics"
	"github.com/supportiq/backend/internal/middleware/ratelimit"
	"github.com/supportiq/backend/internal/middleware/security"
	"github.com/supportiq/backend/internal/middleware/validation"
	"github.com/supportiq/backend/internal/storage/sqlite"
	"github.com/supportiq/backend/pkg/config"
	appLogger "github.com/supportiq/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting SupportIQ API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	redisClient, err := redis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	llmClient := llm.NewClient(cfg.LLM)

	orchestrator := analysis.NewOrchestrator(llmClient, analysis.OrchestratorConfig{
		TriageMaxTokens: cfg.LLM.TriageMaxTokens,
		DeepMaxTokens:   cfg.LLM.DeepMaxTokens,
		CallTimeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})
	pipeline := analysis.NewPipeline(orchestrator, sqliteClient, cfg.LLM.Model)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{
		Logger: appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Tenant-ID",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Server.Environment == "development",
	}))
	app.Use(rateLimiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		MaxBodySize: cfg.Server.BodyLimit,
		Logger:      appLogger.GetLogger(),
	}))
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		metrics.RecordHTTPRequest(
			c.Method(),
			c.Route().Path,
			strconv.Itoa(c.Response().StatusCode()),
			time.Since(start),
		)
		return err
	})

	webhookHandler := handlers.NewWebhookHandler(sqliteClient, redisClient, pipeline)
	callHandler := handlers.NewCallHandler(sqliteClient, redisClient, pipeline)
	ticketHandler := handlers.NewTicketHandler(sqliteClient)
	analyticsHandler := handlers.NewAnalyticsHandler(
		sqliteClient,
		redisClient,
		time.Duration(cfg.Pipeline.RollupCacheTTLSec)*time.Second,
	)

	api := app.Group("/api/v1")

	api.Post("/webhooks/voice", webhookHandler.HandleVoiceWebhook)

	api.Get("/calls", callHandler.ListCalls)
	api.Get("/calls/:id", callHandler.GetCall)
	api.Post("/calls/:id/analyze", callHandler.ReanalyzeCall)

	api.Get("/tickets", ticketHandler.ListTickets)
	api.Get("/tickets/stats", ticketHandler.TicketStats)
	api.Get("/tickets/:id", ticketHandler.GetTicket)
	api.Patch("/tickets/:id", ticketHandler.UpdateTicket)

	api.Get("/analytics/daily", analyticsHandler.DailyRollups)
	api.Get("/analytics/feedback", analyticsHandler.FeedbackLeaderboard)
	api.Get("/profiles", analyticsHandler.ListProfiles)
	api.Get("/profiles/:id", analyticsHandler.GetProfile)

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
