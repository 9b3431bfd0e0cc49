package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bitbender-8/cs-fy-project-sub000/api/swagger"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/handler"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/middleware"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/repository"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/service"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/cache"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/config"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/database"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/export"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/jobs"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/logger"
	corsmiddleware "github.com/bitbender-8/cs-fy-project-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/bitbender-8/cs-fy-project-sub000/pkg/middleware/requestid"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/storage"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/transfer"
)

// @title Campaign Platform API
// @version 1.0.0
// @description Donation campaign management, change requests, and settlements
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	receiptStorage, err := storage.NewLocalStorage(cfg.Settlement.ReceiptDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare receipt storage", "error", err)
	}
	receiptSigner := storage.NewSignedURLSigner(cfg.Settlement.SignedURLSecret, cfg.Settlement.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	postRepo := repository.NewPostRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	requestRepo := repository.NewChangeRequestRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campaign-platform",
	})

	notificationSvc := service.NewNotificationService(userRepo, nil, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
	}, cfg.Notifications.Enabled)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	campaignSvc := service.NewCampaignService(campaignRepo, postRepo, donationRepo, notificationSvc, metricsSvc, logr)
	requestSvc := service.NewChangeRequestService(requestRepo, campaignRepo, postRepo, notificationSvc, metricsSvc, logr)
	settlementSvc := service.NewSettlementService(
		campaignRepo,
		donationRepo,
		userRepo,
		transfer.NewClient(cfg.Transfer),
		service.NewRedisLocker(redisClient),
		export.NewReceiptRenderer(),
		receiptStorage,
		receiptSigner,
		notificationSvc,
		metricsSvc,
		logr,
		cfg.Settlement,
		cfg.Transfer.Currency,
	)

	authHandler := handler.NewAuthHandler(authSvc)
	campaignHandler := handler.NewCampaignHandler(campaignSvc)
	requestHandler := handler.NewChangeRequestHandler(requestSvc)
	settlementHandler := handler.NewSettlementHandler(settlementSvc, receiptStorage, receiptSigner)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	campaigns := api.Group("/campaigns")
	{
		campaigns.GET("", middleware.OptionalJWT(authSvc), campaignHandler.List)
		campaigns.GET("/:id", middleware.OptionalJWT(authSvc), campaignHandler.Get)
		campaigns.GET("/:id/posts", middleware.OptionalJWT(authSvc), campaignHandler.ListPosts)
		campaigns.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleRecipient), campaignHandler.Create)
		campaigns.POST("/:id/review", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleSupervisor), campaignHandler.Review)
		campaigns.POST("/:id/documents", middleware.JWT(authSvc), campaignHandler.AttachDocument)
		campaigns.POST("/:id/posts", middleware.JWT(authSvc), campaignHandler.CreatePost)
		campaigns.GET("/:id/donations", middleware.JWT(authSvc), campaignHandler.ListDonations)
		campaigns.POST("/:id/settlements", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleSupervisor), settlementHandler.Settle)
	}

	// Payment gateway callback; authenticated by transaction reference, not JWT.
	api.POST("/donations", campaignHandler.RecordDonation)

	requests := api.Group("/change-requests", middleware.JWT(authSvc))
	{
		requests.POST("", middleware.RequireRoles(models.RoleRecipient), requestHandler.Create)
		requests.GET("", requestHandler.List)
		requests.GET("/:id", requestHandler.Get)
		requests.POST("/:id/resolve", middleware.RequireRoles(models.RoleSupervisor), requestHandler.Resolve)
	}

	// Receipt links carry their own HMAC signature.
	api.GET("/receipts/:token", settlementHandler.DownloadReceipt)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
