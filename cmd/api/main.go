package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-roster-api/api/swagger"
	"github.com/noah-isme/sma-roster-api/internal/handler"
	"github.com/noah-isme/sma-roster-api/internal/middleware"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/namesplit"
	"github.com/noah-isme/sma-roster-api/internal/normalize"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/service"
	"github.com/noah-isme/sma-roster-api/pkg/cache"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	"github.com/noah-isme/sma-roster-api/pkg/database"
	"github.com/noah-isme/sma-roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-roster-api/pkg/storage"
)

// @title SMA Roster API
// @version 1.0.0
// @description Roster reconciliation and membership lifecycle engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	staffRepo := repository.NewStaffRepository(db)
	classRepo := repository.NewClassRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	grantStore := repository.NewAccessGrantStore(redisClient, cfg.JWT.Expiration)

	metricsSvc := service.NewMetricsService()

	var splitter namesplit.Splitter
	if cfg.Import.SplitterEnabled && cfg.Import.SplitterAPIKey != "" {
		splitter = namesplit.NewOpenAISplitter(cfg.Import.SplitterAPIKey, cfg.Import.SplitterModel, cfg.Import.SplitterTimeout, logr)
	}

	notifier := service.NewQueueNotifier(service.NewLogSender(logr), cfg.Notifications, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	normalizer := normalize.New(splitter, logr)
	resolver := service.NewClassResolver(classRepo, logr)
	credentials := service.NewCredentialService(staffRepo, cfg.Import.HandleMaxAttempts)
	reconciler := service.NewReconciliationService(normalizer, staffRepo, resolver, credentials, notifier, metricsSvc, logr, cfg.Import)
	offboarding := service.NewOffboardingService(staffRepo, rewardRepo, grantStore, notifier, metricsSvc, logr, cfg.Offboarding.Workers)
	exports := service.NewExportService()
	authSvc := service.NewAuthService(grantStore, logr, cfg.JWT)

	archive, err := storage.NewArchive(cfg.Import.ArchiveDir)
	if err != nil {
		logr.Sugar().Fatalw("archive setup failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Import.ArchiveTTL)

	importHandler := handler.NewImportHandler(reconciler, exports, credentials, archive, signer)
	staffHandler := handler.NewStaffHandler(offboarding)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	api.Use(middleware.RequireRoles(models.RoleNameAdmin))
	{
		api.POST("/staff/import", importHandler.UploadSheet)
		api.POST("/staff/import/rows", importHandler.ImportRows)
		api.GET("/staff/import/archive", importHandler.DownloadArchive)
		api.DELETE("/staff", staffHandler.RemoveBatch)
		api.DELETE("/staff/:id", staffHandler.Remove)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
