package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cribware/stocktake/internal/config"
	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/handler"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/cribware/stocktake/internal/count/service"
	"github.com/cribware/stocktake/internal/inventory"
	"github.com/cribware/stocktake/internal/middleware"
	"github.com/cribware/stocktake/internal/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting stocktake service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate count tables failed", zap.Error(err))
	}
	if err := inventory.AutoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate inventory tables failed", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, analytics caching disabled", zap.Error(err))
		rdb = nil
	}

	var store *storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		store, err = storage.NewObjectStore(context.Background(),
			cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
		if err != nil {
			zapLogger.Warn("Object store unavailable, import archiving disabled", zap.Error(err))
			store = nil
		}
	}

	repos := repository.NewRepositories(db)
	source := inventory.NewGormSource(db, cfg.Count.AdapterTimeout)
	services := service.NewServices(repos, source, rdb, store, service.AnalyticsOptions{
		IncludeUncounted: cfg.Count.AnalyticsIncludeUncounted,
		CacheTTL:         cfg.Count.AnalyticsCacheTTL,
	}, zapLogger)
	handlers := handler.NewHandlers(services)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		count := v1.Group("/count")
		{
			schedules := count.Group("/schedules")
			{
				schedules.POST("", h.Schedule.Create)
				schedules.GET("", h.Schedule.List)
				schedules.GET("/:id", h.Schedule.Get)
				schedules.PUT("/:id", h.Schedule.Update)
				schedules.DELETE("/:id", h.Schedule.Delete)
			}

			batches := count.Group("/batches")
			{
				batches.POST("", h.Batch.Create)
				batches.GET("", h.Batch.List)
				batches.GET("/:id", h.Batch.Get)
				batches.PUT("/:id", h.Batch.Update)
				batches.DELETE("/:id", h.Batch.Delete)
				batches.POST("/:id/start", h.Batch.Start)
				batches.POST("/:id/complete", h.Batch.Complete)
				batches.POST("/:id/cancel", h.Batch.Cancel)
				batches.GET("/:id/progress", h.Batch.Progress)
				batches.GET("/:id/items", h.Item.ListByBatch)
				batches.GET("/:id/results", h.Item.ListResultsByBatch)
			}

			items := count.Group("/items")
			{
				items.GET("/:id", h.Item.Get)
				items.POST("/:id/assign", h.Item.Assign)
				items.POST("/:id/count", h.Item.SubmitCount)
				items.POST("/:id/skip", h.Item.Skip)
			}

			count.GET("/results/:id", h.Item.GetResult)

			adjustments := count.Group("/adjustments")
			{
				adjustments.POST("", h.Adjustment.Propose)
				adjustments.GET("", h.Adjustment.List)
				adjustments.GET("/:id", h.Adjustment.Get)
				adjustments.POST("/:id/approve", middleware.RequirePermission("count:approve"), h.Adjustment.Approve)
			}

			count.GET("/analytics", h.Analytics.Report)
			count.GET("/export/:scope", h.Transfer.Export)
			count.POST("/import/:scope", h.Transfer.Import)
		}
	}
}
