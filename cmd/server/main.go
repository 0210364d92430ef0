package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/joho/godotenv"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/cache"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()
	ctx := context.Background()

	if cfg.AuthMode == "jwt" && cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required when AUTH_MODE=jwt")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Firebase: ID token verification, FCM push, auth user deletion
	var verifier middleware.TokenVerifier
	var authDeleter services.AuthUserDeleter
	var pusher notify.Pusher = notify.NoopPusher{}
	if cfg.AuthMode == "firebase" || cfg.FirebaseCredentialsPath != "" {
		fbApp, err := notify.NewFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			slog.Error("firebase init failed", "error", err)
			if cfg.AuthMode == "firebase" {
				os.Exit(1)
			}
		} else {
			if authClient, err := fbApp.Auth(ctx); err != nil {
				slog.Error("firebase auth client init failed", "error", err)
				if cfg.AuthMode == "firebase" {
					os.Exit(1)
				}
			} else if cfg.AuthMode == "firebase" {
				verifier = authClient
				authDeleter = authClient
			}
			if msgClient, err := fbApp.Messaging(ctx); err != nil {
				slog.Warn("firebase messaging unavailable, push disabled", "error", err)
			} else {
				pusher = notify.NewFCMPusher(msgClient)
			}
		}
	}

	// Email (SES)
	var mailer notify.Mailer
	if emailService, err := notify.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL); err != nil {
		slog.Warn("email disabled", "error", err)
	} else {
		mailer = emailService
		slog.Info("email configured", "enabled", emailService.IsEnabled())
	}

	// Rate-limit storage (Redis when configured, in-memory otherwise)
	var limiterStorage fiber.Storage
	if cfg.RedisURL != "" {
		if redisStorage, err := cache.NewRedisStorage(cfg.RedisURL, ""); err != nil {
			slog.Warn("redis unavailable, using in-memory rate limits", "error", err)
		} else {
			limiterStorage = redisStorage
			defer redisStorage.Close()
		}
	}

	// Services
	aiClient := ai.NewClient(cfg)
	usageService := services.NewUsageService(database.DB, cfg)
	householdService := services.NewHouseholdService(database.DB, cfg, mailer, pusher)
	profileService := services.NewProfileService(database.DB, cfg, usageService, mailer)
	childService := services.NewChildService(database.DB, cfg, householdService)
	toyService := services.NewToyService(database.DB, cfg, householdService)
	rotationService := services.NewRotationService(database.DB, householdService)
	feedbackService := services.NewFeedbackService(database.DB, householdService)
	aiService := services.NewAIService(database.DB, usageService, aiClient)
	subscriptionService := services.NewSubscriptionService(database.DB)
	reminderService := services.NewReminderService(database.DB, pusher)
	deletionService := services.NewDeletionService(database.DB, authDeleter)

	// Handlers
	configHandler := handlers.NewRemoteConfigHandler(database.DB)
	h := routes.Handlers{
		Health:    handlers.NewHealthHandler(cfg),
		Webhook:   handlers.NewWebhookHandler(subscriptionService, cfg.RevenueCatWebhookAuth),
		Legal:     handlers.NewLegalHandler("ToyRotator", cfg.SESFromEmail),
		Config:    configHandler,
		Profile:   handlers.NewProfileHandler(profileService),
		Household: handlers.NewHouseholdHandler(householdService),
		Child:     handlers.NewChildHandler(childService),
		Toy:       handlers.NewToyHandler(toyService),
		Rotation:  handlers.NewRotationHandler(rotationService, feedbackService),
		AI:        handlers.NewAIHandler(aiService),
	}

	// Seed default remote config values
	if err := configHandler.SeedDefaults(); err != nil {
		slog.Error("remote config seeding failed", "error", err)
	}

	// Background jobs
	jobsDone := make(chan struct{})
	if cfg.JobsEnabled {
		jobs.Start(jobsDone,
			jobs.Job{Name: "rotation_reminders", Interval: jobs.ReminderInterval, Run: reminderService.SendDue},
			jobs.Job{Name: "account_deletions", Interval: jobs.DeletionInterval, Run: deletionService.ExecuteDue},
			jobs.Job{Name: "log_cleanup", Interval: 24 * time.Hour, Run: logging.PruneSystemLogs(database.DB, logging.LogRetention)},
		)
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app; photos arrive as up to 4 MiB of base64 inside JSON
	app := fiber.New(fiber.Config{
		BodyLimit:    6 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, cfg, middleware.Authenticate(cfg, verifier), limiterStorage, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "auth_mode", cfg.AuthMode, "ai_configured", cfg.AIConfigured())
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(jobsDone)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		status = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if status >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(status).JSON(callable.ErrorResponse{
		Error:   true,
		Code:    codeForStatus(status),
		Message: message,
	})
}

func codeForStatus(status int) callable.Code {
	switch status {
	case fiber.StatusUnauthorized:
		return callable.CodeUnauthenticated
	case fiber.StatusForbidden:
		return callable.CodePermissionDenied
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return callable.CodeNotFound
	case fiber.StatusTooManyRequests:
		return callable.CodeResourceExhausted
	}
	if status >= 400 && status < 500 {
		return callable.CodeInvalidArgument
	}
	return callable.CodeInternal
}
