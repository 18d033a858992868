package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/accessdesk/access-api/api/swagger"
	"github.com/accessdesk/access-api/internal/handler"
	"github.com/accessdesk/access-api/internal/middleware"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/repository"
	"github.com/accessdesk/access-api/internal/service"
	"github.com/accessdesk/access-api/pkg/cache"
	"github.com/accessdesk/access-api/pkg/config"
	"github.com/accessdesk/access-api/pkg/database"
	"github.com/accessdesk/access-api/pkg/logger"
	corsmiddleware "github.com/accessdesk/access-api/pkg/middleware/cors"
	reqidmiddleware "github.com/accessdesk/access-api/pkg/middleware/requestid"
	"github.com/accessdesk/access-api/pkg/storage"
)

// @title Access Request Portal API
// @version 1.0.0
// @description Self-service access requests for datasets, APIs, BI dashboards and warehouses
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	draftRepo := repository.NewDraftRepository(redisClient, cfg.Drafts.TTL, logr)
	nudgeRepo := repository.NewNudgeRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	exportStore, err := storage.NewStore(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewTokenSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	notificationService := service.NewNotificationService(logr, cfg.Notifications.WorkerConcurrency, cfg.Notifications.WorkerRetries)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "access-api",
	})
	catalogService := service.NewCatalogService(assetRepo, profileRepo, cacheService, validate, logr)
	draftService := service.NewDraftService(draftRepo, assetRepo, profileRepo, requestRepo, notificationService, metricsService, validate, logr, service.DraftConfig{
		DebounceInterval: cfg.Drafts.DebounceInterval,
		UploadDelay:      cfg.Drafts.UploadDelay,
	})
	requestService := service.NewRequestService(requestRepo, nudgeRepo, userRepo, notificationService, metricsService, validate, logr, cfg.Nudges.Cooldown)
	exportService := service.NewExportService(requestRepo, exportStore, signer, logr, nil, nil)

	authHandler := handler.NewAuthHandler(authService)
	assetHandler := handler.NewAssetHandler(catalogService)
	draftHandler := handler.NewDraftHandler(draftService, cfg.Attachments.MaxFileSizeBytes, cfg.Attachments.AllowedMIMEs)
	requestHandler := handler.NewRequestHandler(requestService, exportService)
	approvalHandler := handler.NewApprovalHandler(requestService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.Enabled {
		notificationService.Start(ctx)
	}

	if cfg.Receipts.Enabled {
		go sweepExports(ctx, exportStore, cfg.Receipts.Retention, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.ResponseMeta())
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", middleware.Audit(userRepo, models.AuditActionLogin, "auth"), authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	api.GET("/exports/download", middleware.OptionalJWT(authService), requestHandler.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	protected.GET("/assets", assetHandler.List)
	protected.GET("/assets/:id", assetHandler.Get)
	protected.GET("/assets/:id/roles", assetHandler.Roles)
	protected.GET("/profile", assetHandler.Profile)
	protected.GET("/context/preview", assetHandler.PreviewContext)

	protected.POST("/drafts", draftHandler.Start)
	protected.GET("/drafts/active", draftHandler.Get)
	protected.PATCH("/drafts/active", draftHandler.Update)
	protected.DELETE("/drafts/active", draftHandler.Cancel)
	protected.PUT("/drafts/active/prerequisites", draftHandler.SetPrereq)
	protected.POST("/drafts/active/autofill", draftHandler.Autofill)
	protected.POST("/drafts/active/step", draftHandler.Step)
	protected.POST("/drafts/active/attachments", draftHandler.Upload)
	protected.POST("/drafts/active/submit", draftHandler.Submit)

	protected.GET("/requests", requestHandler.ListMine)
	protected.GET("/requests/export", requestHandler.ExportCSV)
	protected.GET("/requests/:id", requestHandler.Get)
	protected.POST("/requests/:id/nudge", requestHandler.Nudge)
	if cfg.Receipts.Enabled {
		protected.POST("/requests/:id/receipt", requestHandler.Receipt)
	}

	approvals := protected.Group("/approvals")
	approvals.Use(middleware.RequireRoles(models.RoleApprover, models.RoleAdmin))
	approvals.GET("", approvalHandler.ListPending)
	approvals.POST("/:id/approve", approvalHandler.Approve)
	approvals.POST("/:id/deny", approvalHandler.Deny)

	admin := protected.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/metrics/snapshot", metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown", "error", err)
	}
	draftService.Flush(shutdownCtx)
	notificationService.Stop()
}

// sweepExports periodically drops receipt files past their retention window.
func sweepExports(ctx context.Context, store *storage.Store, retention time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(retention)
			if err != nil {
				logr.Sugar().Warnw("export sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logr.Sugar().Infow("export sweep removed stale files", "count", removed)
			}
		}
	}
}
