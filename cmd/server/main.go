package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/quietdrop/quietdrop-api/api/swagger"
	"github.com/quietdrop/quietdrop-api/internal/handler"
	"github.com/quietdrop/quietdrop-api/internal/middleware"
	"github.com/quietdrop/quietdrop-api/internal/repository"
	"github.com/quietdrop/quietdrop-api/internal/service"
	"github.com/quietdrop/quietdrop-api/pkg/cache"
	"github.com/quietdrop/quietdrop-api/pkg/config"
	"github.com/quietdrop/quietdrop-api/pkg/database"
	"github.com/quietdrop/quietdrop-api/pkg/logger"
	corsmiddleware "github.com/quietdrop/quietdrop-api/pkg/middleware/cors"
	reqidmiddleware "github.com/quietdrop/quietdrop-api/pkg/middleware/requestid"
)

// @title QuietDrop API
// @version 1.0.0
// @description Single-link secret sharing with expiring, optionally password-protected retrieval
// @BasePath /
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	secretRepo := repository.NewSecretRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	secretSvc := service.NewSecretService(secretRepo, grantRepo, cacheRepo, metricsSvc, nil, logr, service.SecretConfig{
		PublicURL:         cfg.PublicURL,
		DefaultExpiryDays: cfg.Secrets.DefaultExpiryDays,
		ShortIDLength:     cfg.Secrets.ShortIDLength,
		ShortIDRetries:    cfg.Secrets.ShortIDRetries,
		BcryptCost:        cfg.Secrets.BcryptCost,
		MaxTextBytes:      cfg.Secrets.MaxTextBytes,
		SingleUse:         cfg.Secrets.SingleUse,
		MappingCacheTTL:   cfg.Secrets.MappingCacheTTL,
	})
	adminSvc := service.NewAdminService(grantRepo, nil, logr)

	if cfg.Sweeper.Enabled {
		sweeper := service.NewSweeperService(secretRepo, metricsSvc, logr, service.SweeperConfig{
			Interval:  cfg.Sweeper.Interval,
			BatchSize: cfg.Sweeper.BatchSize,
			Workers:   cfg.Sweeper.Workers,
		})
		sweeper.Start(context.Background())
	}

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	secretHandler := handler.NewSecretHandler(secretSvc)
	r.POST("/secrets", secretHandler.Create)
	r.GET("/secrets/:shortId", secretHandler.Get)
	r.POST("/secrets/:shortId", secretHandler.Redeem)
	r.POST("/secrets/:shortId/extended", secretHandler.RedeemExtended)

	adminHandler := handler.NewAdminHandler(adminSvc)
	admin := r.Group("/admin", middleware.AdminAuth(cfg.Admin.TokenSecret))
	admin.POST("/extend", adminHandler.Extend)
	admin.GET("/extend/export", adminHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
