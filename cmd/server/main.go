package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentbridge/service-booking/internal/application"
	"github.com/rentbridge/service-booking/internal/config"
	bookingEvents "github.com/rentbridge/service-booking/internal/events"
	"github.com/rentbridge/service-booking/internal/handler"
	"github.com/rentbridge/service-booking/internal/repository"
	"github.com/rentbridge/service-booking/internal/scheduler"
	"github.com/rentbridge/service-booking/pkg/auth"
	"github.com/rentbridge/service-booking/pkg/database"
	"github.com/rentbridge/service-booking/pkg/health"
	"github.com/rentbridge/service-booking/pkg/kafka"
	"github.com/rentbridge/service-booking/pkg/logger"
	"github.com/rentbridge/service-booking/pkg/middleware"
	"github.com/rentbridge/service-booking/pkg/rabbitmq"
	"go.uber.org/zap"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("events_driver", cfg.EventsDriver),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.IsDevelopment() {
		if err := repository.AutoMigrate(db); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessTTL,
		cfg.JWTConfig.RefreshTTL,
	)

	// Event publisher; left nil when events are disabled.
	var publisher application.EventPublisher
	switch cfg.EventsDriver {
	case config.EventsDriverKafka:
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer closeQuietly(log, "kafka producer", producer)
		publisher = producer
	case config.EventsDriverRabbitMQ:
		rmq, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer closeQuietly(log, "rabbitmq publisher", rmq)
		publisher = rmq
	default:
		log.Warn("event publishing disabled")
	}

	// Initialize repositories
	uow := repository.NewGormUnitOfWork(db)
	bookingRepo := repository.NewGormBookingRepository(db)
	propertyRepo := repository.NewGormPropertyRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	favoriteRepo := repository.NewGormFavoriteRepository(db)

	// Initialize application services
	bookingService := application.NewBookingService(uow, bookingRepo, propertyRepo, userRepo, publisher, log.Named("bookings"))
	propertyService := application.NewPropertyService(uow, propertyRepo, publisher, log.Named("properties"))
	wishlistService := application.NewWishlistService(favoriteRepo, propertyRepo, log.Named("wishlist"))
	userService := application.NewUserService(userRepo, bookingService, propertyService, wishlistService, log.Named("users"))
	adminService := application.NewAdminService(bookingRepo, propertyRepo, userRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// User directory sync consumes from Kafka unless events are disabled.
	if len(cfg.KafkaConfig.Brokers) > 0 && cfg.EventsDriver != config.EventsDriverNone {
		userConsumer := bookingEvents.NewUserEventConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+"booking-service",
			userService,
			log.Named("user-events"),
		)
		defer closeQuietly(log, "user event consumer", userConsumer)

		go func() {
			log.Info("starting user event consumer")
			if err := userConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("user event consumer error", zap.Error(err))
			}
		}()
	}

	// Completion sweep
	sched, err := scheduler.New(bookingService, cfg.CompletionSchedule, log)
	if err != nil {
		log.Fatal("failed to create scheduler", zap.Error(err))
	}
	sched.Start()

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	health.NewHandler(db, serviceName).RegisterRoutes(router)

	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewPropertyHandler(propertyService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewWishlistHandler(wishlistService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminHandler(adminService, bookingService, bookingService, propertyService).
		RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}

func closeQuietly(log *zap.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close "+name, zap.Error(err))
	}
}
