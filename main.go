package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-registration/internal/auth"
	"ms-registration/internal/booking"
	booking_api "ms-registration/internal/booking/api"
	booking_db "ms-registration/internal/booking/db"
	"ms-registration/internal/cache"
	"ms-registration/internal/config"
	"ms-registration/internal/database/migrations"
	"ms-registration/internal/events"
	events_api "ms-registration/internal/events/api"
	events_db "ms-registration/internal/events/db"
	"ms-registration/internal/kafka"
	"ms-registration/internal/logger"
	"ms-registration/internal/users"
	users_api "ms-registration/internal/users/api"
	users_db "ms-registration/internal/users/db"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func buildVerifier(ctx context.Context, cfg *config.Config, issuer *auth.Issuer, logger *logger.Logger) auth.Verifier {
	if cfg.Auth.OIDCIssuer != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			logger.Fatal("AUTH", fmt.Sprintf("Failed to set up OIDC verifier: %v", err))
		}
		logger.Info("AUTH", fmt.Sprintf("Verifying tokens against OIDC issuer %s", cfg.Auth.OIDCIssuer))
		return oidcVerifier
	}

	logger.Info("AUTH", "Verifying locally issued HS256 tokens")
	return issuer
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Registration Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Migrations.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.Migrations.Dir,
			AutoMigrate:   true,
		})
		if err := runner.RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		logger.Info("DATABASE", "Migrations applied")
	}

	var bookingPublisher booking.KafkaPublisher
	var eventPublisher events.KafkaPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.EventRequested,
			cfg.Kafka.Topics.EventVerified,
			cfg.Kafka.Topics.RegistrationCreated,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}

		bookingPublisher = producer
		eventPublisher = producer
	} else {
		logger.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	eventCache := cache.NewEventCache(redisClient, cfg.Redis.CacheTTL, logger)

	if cfg.Auth.OIDCIssuer == "" && cfg.Auth.Secret == "" {
		logger.Fatal("CONFIG", "AUTH_SECRET not set")
	}
	tokenIssuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	verifier := buildVerifier(ctx, cfg, tokenIssuer, logger)

	eventService := events.NewEventService(
		&events_db.DB{Bun: bunDB},
		eventPublisher,
		eventCache,
		logger,
		events.Topics{
			EventRequested: cfg.Kafka.Topics.EventRequested,
			EventVerified:  cfg.Kafka.Topics.EventVerified,
		},
	)

	bookingService := booking.NewBookingService(
		&booking_db.DB{Bun: bunDB},
		bookingPublisher,
		eventCache,
		logger,
		cfg.Kafka.Topics.RegistrationCreated,
	)

	userService := users.NewUserService(&users_db.DB{Bun: bunDB}, tokenIssuer, logger)

	eventHandler := events_api.NewHandler(eventService, logger)
	bookingHandler := booking_api.NewHandler(bookingService, logger)
	userHandler := users_api.NewHandler(userService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Post("/auth/signup", userHandler.Signup)
	r.Post("/auth/login", userHandler.Login)
	r.Get("/api/events", eventHandler.ListEvents)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))

		r.Route("/api", func(r chi.Router) {
			r.Post("/events", eventHandler.SubmitEvent)

			r.Route("/registrations", func(r chi.Router) {
				r.Post("/", bookingHandler.Book)
				r.Get("/", bookingHandler.ListRegistrations)
				r.Get("/{registrationId}", bookingHandler.GetRegistration)
				r.Get("/{registrationId}/qr", bookingHandler.TicketQR)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/events/pending", eventHandler.ListPendingEvents)
				r.Post("/events/{eventId}/verify", eventHandler.VerifyEvent)
			})
		})
	})
	logger.Info("ROUTER", "Routes registered")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Registration Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "Registration Service shutdown complete")
	}
}
