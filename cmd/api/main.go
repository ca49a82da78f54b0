// Package main is the entry point for the support-console API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/config"
	"github.com/zapdesk/support-console/internal/handler"
	"github.com/zapdesk/support-console/internal/messaging"
	"github.com/zapdesk/support-console/internal/middleware"
	"github.com/zapdesk/support-console/internal/push"
	"github.com/zapdesk/support-console/internal/service"
	"github.com/zapdesk/support-console/internal/store"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-console", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the backing store. An empty DATABASE_URL means memory-only
	// mode: conversations still flow, they just do not survive restarts.
	db, err := store.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	conversationStore := store.NewConversationStore(db, log)
	labelStore := store.NewLabelStore(db, log)
	orderStore := store.NewOrderStore(db, log)

	// Connect to NATS
	pushClient, err := push.Connect(push.Config{
		URL:   cfg.NATSURL,
		Token: cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer pushClient.Close()

	publisher := push.NewNATSPublisher(pushClient, log)

	// Outbound messaging
	sender := messaging.NewCloudAPIClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneID, log)
	if !sender.Configured() {
		log.Warn("WhatsApp credentials missing, outbound delivery disabled")
	}

	// Initialize services
	conversationSvc := service.NewConversationService(ctx, conversationStore, publisher, log)
	messageSvc := service.NewMessageService(conversationSvc, sender, log)
	labelSvc := service.NewLabelService(ctx, labelStore, conversationSvc, log)
	orderSvc := service.NewOrderService(ctx, orderStore, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(pushClient)
	conversationHandler := handler.NewConversationHandler(conversationSvc, messageSvc, labelSvc, log)
	labelHandler := handler.NewLabelHandler(labelSvc, log)
	orderHandler := handler.NewOrderHandler(orderSvc, log)
	streamHandler := handler.NewStreamHandler(conversationSvc, publisher, log)
	webhookHandler := handler.NewWebhookHandler(messageSvc, cfg.WhatsAppVerifyToken, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Provider webhook (verified by token, not JWT)
	r.Get("/webhook", webhookHandler.Verify)
	r.Post("/webhook", webhookHandler.Receive)

	// API routes with authentication
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/new", conversationHandler.Create)

			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Post("/send", conversationHandler.Send)
				r.Post("/read", conversationHandler.MarkRead)
				r.Put("/labels", conversationHandler.SetLabels)
			})
		})

		// Labels
		r.Route("/labels", func(r chi.Router) {
			r.Get("/", labelHandler.List)
			r.Post("/", labelHandler.Create)
			r.Put("/{id}", labelHandler.Update)
			r.Delete("/{id}", labelHandler.Delete)
		})

		// Service orders
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Post("/", orderHandler.Create)
			r.Get("/{id}", orderHandler.Get)
			r.Put("/{id}", orderHandler.Update)
			r.Delete("/{id}", orderHandler.Delete)
		})

		// Live updates
		r.Get("/events", streamHandler.Events)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
