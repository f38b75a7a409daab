package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub-api/internal/api"
	"learnhub-api/internal/config"
	"learnhub-api/internal/database"
	"learnhub-api/internal/middleware"
	"learnhub-api/internal/response"
	"learnhub-api/internal/services"
	"learnhub-api/pkg/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(cfg.Mode)
	response.ExposeErrorDetails = cfg.IsDebug()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	handler, cleanup := buildHandler(cfg)
	defer cleanup()

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg)))

	// Setup routes
	api.SetupRoutes(r, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}
}

// buildHandler wires stores and services. Optional backends fall back to
// in-process implementations when they are not configured.
func buildHandler(cfg *config.Config) (*api.Handler, func()) {
	db := database.GetDB()
	users := database.NewUserStore(db)
	courses := database.NewCourseStore(db)
	plans := database.NewPlanStore(db)
	clock := services.SystemClock{}

	var (
		limiter services.LoginLimiter
		guard   services.EventGuard
	)
	if client := database.GetRedis(); client != nil {
		redisService := services.NewRedisService(client, time.Duration(cfg.LoginWindowMinutes)*time.Minute)
		limiter, guard = redisService, redisService
	} else {
		logging.Warnf("Redis not configured, login throttling disabled and payment events deduplicated in memory")
		guard = services.NewReplayProtection()
	}

	var events services.Publisher = &services.EventProducerFallback{}
	if cfg.AMQPURL != "" {
		producer, err := services.NewEventProducer(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			logging.Errorf("RabbitMQ unavailable, events will only be logged: %v", err)
		} else {
			events = producer
		}
	}

	var mailer services.Mailer = services.NoopMailer{}
	if cfg.BrevoAPIKey != "" {
		mailer = services.NewBrevoService(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName)
	} else {
		logging.Warnf("BREVO_API_KEY not set, subscription receipts will not be sent")
	}

	var processor services.PaymentProcessor
	if cfg.StripeSecretKey != "" {
		processor = services.NewStripeProcessor(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logging.Warnf("STRIPE_SECRET_KEY not set, payment endpoints are disabled")
	}

	subscriptions := services.NewSubscriptionService(database.NewSubscriptionStore(db), plans, events, clock)
	handler := &api.Handler{
		Auth: services.NewAuthService(users, limiter, services.AuthConfig{
			Secret:      cfg.JWTSecret,
			TokenTTL:    time.Duration(cfg.JWTTTLHours) * time.Hour,
			MaxAttempts: cfg.LoginMaxAttempts,
		}, clock),
		Courses:       services.NewCourseService(courses),
		Subscriptions: subscriptions,
		Enrollments:   services.NewEnrollmentService(subscriptions, database.NewEnrollmentStore(db), courses, events, clock),
		Payments: services.NewPaymentService(subscriptions, users, processor, guard,
			services.NewReceiptNotifier(mailer), cfg.Currency),
		ServiceName: cfg.ServiceName,
	}
	return handler, events.Close
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	origins := cfg.AllowedOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	return corsCfg
}
