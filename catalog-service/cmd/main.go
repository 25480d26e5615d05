package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/catalog-service/internal/app/catalog/config"
	"storefront/catalog-service/internal/app/catalog/handler"
	"storefront/catalog-service/internal/app/catalog/processor"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/service"
	"storefront/catalog-service/internal/app/catalog/util"
	"storefront/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "catalog-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Log.Level)
	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Log.LogstashAddr).Msg("logstash unavailable, logging to stdout only")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === POSTGRESQL ===
	// gorm: товары, отзывы, реакции; pgxpool: категории и справочник пользователей
	db, err := connectGorm(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database (gorm)")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	pool, err := connectPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database (pgx)")
	}
	defer pool.Close()
	logger.Info().Msg("connected to PostgreSQL")

	// === REDIS ===
	redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("addr", cfg.Redis.Address()).Msg("connected to Redis")

	// === KAFKA PRODUCER ===
	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()

	// === РЕПОЗИТОРИИ ===
	categoryRepo := repository.NewCategoryRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	productRepo := repository.NewProductRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	productReactions := repository.NewReactionRepository(db, repository.ProductReactions)
	reviewReactions := repository.NewReactionRepository(db, repository.ReviewReactions)

	// === СЕРВИСЫ ===
	cache := service.NewCacheCoordinator(util.NewRedisCache(redisClient), cfg.Cache.ProductsTTL, cfg.Cache.CategoriesTTL)
	ratingService := service.NewRatingService(reviewRepo, productRepo)
	catalogService := service.NewCatalogService(categoryRepo, productRepo, cache)
	reviewService := service.NewReviewService(reviewRepo, productRepo, userRepo, ratingService, kafkaProducer)
	reactionService := service.NewReactionService(userRepo, productRepo, reviewRepo, productReactions, reviewReactions)
	reconcileService := service.NewReconcileService(productReactions, reviewReactions, productRepo, ratingService, cfg.Reconcile.Parallelism)

	// === HTTP ===
	router := handler.SetupRoutes(handler.Handlers{
		Catalog:  handler.NewCatalogHandler(catalogService),
		Reviews:  handler.NewReviewHandler(reviewService),
		Reaction: handler.NewReactionHandler(reactionService),
		Health:   handler.NewHealthHandler(db, redisClient),
	}, handler.NewAuthMiddleware(cfg.JWT.Secret), cfg.Server.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// === ФОНОВЫЕ ПРОЦЕССЫ ===
	consumer := processor.NewKafkaConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topic,
		cfg.Kafka.GroupID,
		cfg.Kafka.MinBytes,
		cfg.Kafka.MaxBytes,
		ratingService,
	)
	consumer.Start(ctx)

	scheduler := processor.NewCronScheduler(reconcileService)
	if err := scheduler.Start(ctx, cfg.Reconcile.Schedule, cfg.Reconcile.OnStartup); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Reconcile.Schedule).Msg("failed to start reconcile scheduler")
	}

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	scheduler.Stop()
	cancel()
	consumer.Stop()

	logger.Info().Msg("catalog service stopped")
}

// connectGorm - с повторами, PostgreSQL в docker-compose может подниматься дольше сервиса
func connectGorm(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var err error
	for i := 0; i < 10; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				return nil, sqlErr
			}
			if err = sqlDB.Ping(); err == nil {
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(time.Minute)
				return db, nil
			}
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("database not ready, retrying")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

func connectPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
