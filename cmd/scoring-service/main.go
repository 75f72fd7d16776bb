package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/config"
	"dao-governance-scorer/internal/scoring/delivery/consumer"
	delivery "dao-governance-scorer/internal/scoring/delivery/http"
	"dao-governance-scorer/internal/scoring/repository"
	"dao-governance-scorer/internal/scoring/scheduler"
	"dao-governance-scorer/internal/scoring/service"
	"dao-governance-scorer/pkg/common"
	"dao-governance-scorer/pkg/logger"
	"dao-governance-scorer/pkg/metrics"
	"dao-governance-scorer/pkg/postgres"
	"dao-governance-scorer/pkg/redis"

	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the scoring service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Scoring Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	if err := redisClient.EnsureGroup(ctx, common.RedisStreamProposalSignals, common.RedisStreamGroup); err != nil {
		appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
	}

	engine, err := governance.NewEngine(cfg.Scoring, cfg.Alerts, cfg.Evaluation.Workers, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize scoring engine", logger.ErrorField(err))
	}

	// Initialize repositories
	evaluationRepo := repository.NewEvaluationRepository(db.DB)
	alertRepo := repository.NewAlertRepository(db.DB)
	snapshotRepo := repository.NewSnapshotRepository(db.DB)

	appMetrics := metrics.New()
	leaderboardCache := gocache.New(cfg.Evaluation.LeaderboardCacheTTL, 2*cfg.Evaluation.LeaderboardCacheTTL)

	evaluationSvc := service.NewEvaluationService(cfg, engine, evaluationRepo, alertRepo, snapshotRepo, leaderboardCache, appMetrics, appLogger)

	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient.Client, evaluationSvc, appMetrics, appLogger)
	redisConsumer.Start(ctx)

	var rescoreScheduler *scheduler.RescoreScheduler
	if cfg.Evaluation.RescoreSchedule != "" {
		rescoreScheduler, err = scheduler.NewRescoreScheduler(cfg.Evaluation.RescoreSchedule, time.Minute, evaluationSvc, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize rescore scheduler", logger.ErrorField(err))
		}
		rescoreScheduler.Start(ctx)
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	apiV1 := e.Group("/api/v1")
	delivery.NewEvaluationHandler(evaluationSvc, appLogger).RegisterRoutes(apiV1)
	e.GET("/metrics", echo.WrapHandler(appMetrics.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down scoring service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}
	redisConsumer.Stop()
	if rescoreScheduler != nil {
		rescoreScheduler.Stop()
	}

	appLogger.Info("Scoring service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "scoring-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-scoring.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing scoring-service CLI: %s\n", err)
		os.Exit(1)
	}
}
