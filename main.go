package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/brocketdesign/rakubun-sub003/src/config"
	"github.com/brocketdesign/rakubun-sub003/src/database"
	"github.com/brocketdesign/rakubun-sub003/src/handlers"
	"github.com/brocketdesign/rakubun-sub003/src/logging"
	"github.com/brocketdesign/rakubun-sub003/src/middleware"
	"github.com/brocketdesign/rakubun-sub003/src/repositories"
	"github.com/brocketdesign/rakubun-sub003/src/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Credential encryption at rest (optional — empty key disables)
	encryptor, err := services.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryption")
	}
	if encryptor != nil {
		log.Info().Msg("site credential encryption enabled (AES-256-GCM)")
	} else {
		log.Info().Msg("site credential encryption disabled (ENCRYPTION_KEY not set)")
	}

	// Initialize services
	keyService := services.NewKeyService(db.GetPool())
	sessionService := services.NewSessionService(cfg.JWTSecret)

	// The webhook registry lives for the lifetime of this process. It is
	// authoritative only within one running instance; registrations do not
	// survive a restart.
	webhookService := services.NewWebhookService(cfg.WebhookTimeout)

	articleRepo := repositories.NewPgxArticleRepository(db.GetPool())
	siteRepo := repositories.NewPgxSiteRepository(db.GetPool(), encryptor)
	wordpressService := services.NewWordPressService(cfg.WordPressTimeout)
	reconcileService := services.NewReconcileService(articleRepo, siteRepo, wordpressService, cfg.ReconcileConcurrency)

	// Background reconciliation
	scheduler := services.NewSchedulerService(reconcileService, cfg.EnableScheduler, cfg.ReconcileInterval)
	scheduler.Start(context.Background())

	// Create Gin router
	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	if cfg.AllowedOrigins != "" {
		allowed := strings.Split(cfg.AllowedOrigins, ",")
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowed,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.APIKeyHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	setupRoutes(router, db, keyService, sessionService, webhookService, reconcileService)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + formatPort(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	if cfg.EnableScheduler {
		scheduler.Stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

func setupRoutes(
	router *gin.Engine,
	db *database.Database,
	keyService *services.KeyService,
	sessionService *services.SessionService,
	webhookService *services.WebhookService,
	reconcileService *services.ReconcileService,
) {
	healthHandler := handlers.NewHealthHandler(db)
	keyHandler := handlers.NewKeyHandler(keyService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	reconcileHandler := handlers.NewReconcileHandler(reconcileService)

	// Health check endpoints
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/ready", healthHandler.HandleReady)
	router.GET("/info", healthHandler.HandleInfo)

	// Key management requires a dashboard session; issuance is additionally
	// rate limited per IP
	keyGroup := router.Group("/api/keys", middleware.SessionAuth(sessionService))
	{
		keyGroup.POST("", middleware.NewIPRateLimitingMiddleware(middleware.RateLimitConfig{
			RequestsPerMinute: 10,
			Burst:             3,
		}), keyHandler.HandleIssueKey)
		keyGroup.GET("", keyHandler.HandleListKeys)
		keyGroup.DELETE("/:key_id", keyHandler.HandleRevokeKey)
	}

	// Webhook registry and dispatch accept either credential
	auth := middleware.Auth(keyService, sessionService)
	webhookGroup := router.Group("/api/webhooks", auth)
	{
		webhookGroup.POST("", webhookHandler.HandleRegister)
		webhookGroup.GET("/:site_id", webhookHandler.HandleGetSubscription)
		webhookGroup.DELETE("/:site_id", webhookHandler.HandleUnregister)
		webhookGroup.POST("/:site_id/test", webhookHandler.HandleTestDelivery)
		webhookGroup.POST("/broadcast", webhookHandler.HandleBroadcast)
	}

	// On-demand reconciliation, rate limited per caller
	router.POST("/api/reconcile",
		auth,
		middleware.NewCallerRateLimitMiddleware(middleware.RateLimitConfig{
			RequestsPerMinute: 6,
			Burst:             2,
		}),
		reconcileHandler.HandleReconcile)
}

func formatPort(port int) string {
	return fmt.Sprintf("%d", port)
}
