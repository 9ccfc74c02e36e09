package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/config"
	"github.com/noah-isme/codegrade-api/internal/database"
	"github.com/noah-isme/codegrade-api/internal/handler"
	"github.com/noah-isme/codegrade-api/internal/middleware"
	"github.com/noah-isme/codegrade-api/internal/observability"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/internal/router"
	"github.com/noah-isme/codegrade-api/internal/service"
	"github.com/noah-isme/codegrade-api/pkg/ai"
	"github.com/noah-isme/codegrade-api/pkg/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.DefaultPool)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var gateway payment.Gateway
	var verifier payment.EventVerifier
	if cfg.StripeSecretKey != "" {
		stripeGateway, err := payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Logger:        logger,
		})
		if err != nil {
			log.Fatalf("failed to create stripe gateway: %v", err)
		}
		gateway = stripeGateway
		if cfg.StripeWebhookSecret != "" {
			verifier = stripeGateway
		}
	} else {
		logger.Warn().Msg("stripe secret key missing; checkout and webhooks disabled")
	}

	var evaluator ai.Evaluator
	if cfg.AIAPIKey != "" {
		openAIEvaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey:      cfg.AIAPIKey,
			BaseURL:     cfg.AIBaseURL,
			Model:       cfg.AIModel,
			MaxTokens:   cfg.AIMaxTokens,
			Temperature: cfg.AITemperature,
			Logger:      logger,
		})
		if err != nil {
			log.Fatalf("failed to create ai evaluator: %v", err)
		}
		evaluator = openAIEvaluator
	} else {
		logger.Warn().Msg("ai api key missing; evaluations disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paymentHub := service.NewPaymentEventHub(redisClient, natsConn, cfg.EventsChannel, logger)
	paymentHub.Start(ctx)

	reportService := service.NewReportService(taskRepo, evaluationRepo, paymentRepo, redisClient, cfg.ReportsCacheTTL, logger)
	taskService := service.NewTaskService(taskRepo, evaluationRepo, paymentRepo, reportService, validate, logger)
	evaluationService := service.NewEvaluationService(taskRepo, evaluationRepo, evaluator, reportService, cfg.AIModel, logger)
	checkoutService := service.NewCheckoutService(taskRepo, paymentRepo, gateway, service.CheckoutConfig{
		PublicURL:       cfg.PublicURL,
		PriceID:         cfg.StripePriceID,
		DefaultAmount:   cfg.PaymentDefaultAmount,
		DefaultCurrency: cfg.PaymentDefaultCurrency,
	}, logger)
	webhookService := service.NewWebhookService(paymentRepo, verifier, paymentHub, reportService, service.WebhookConfig{
		DefaultAmount:   cfg.PaymentDefaultAmount,
		DefaultCurrency: cfg.PaymentDefaultCurrency,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/metrics", observability.MetricsHandler())
	router.Register(app, cfg, router.Dependencies{
		TaskHandler:          handler.NewTaskHandler(taskService, logger),
		EvaluationHandler:    handler.NewEvaluationHandler(evaluationService, logger),
		CheckoutHandler:      handler.NewCheckoutHandler(checkoutService, logger),
		WebhookHandler:       handler.NewWebhookHandler(webhookService, logger),
		ReportHandler:        handler.NewReportHandler(reportService, logger),
		PaymentStreamHandler: handler.NewPaymentStreamHandler(paymentHub, logger),
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
