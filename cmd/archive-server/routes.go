package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/community-archive/api/swagger"
	"github.com/noah-isme/community-archive/internal/handler"
	"github.com/noah-isme/community-archive/internal/middleware"
	"github.com/noah-isme/community-archive/internal/service"
	"github.com/noah-isme/community-archive/pkg/config"
	"github.com/noah-isme/community-archive/pkg/logger"
	corsmiddleware "github.com/noah-isme/community-archive/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/community-archive/pkg/middleware/requestid"
)

type routeHandlers struct {
	records  *handler.RecordHandler
	blobs    *handler.BlobHandler
	exports  *handler.ExportHandler
	taxonomy *handler.TaxonomyHandler
	metrics  *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routeHandlers, metrics *service.MetricsService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET("/files/*path", h.blobs.Serve)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	api := r.Group(prefix)
	{
		api.PUT("/blobs/*path", h.blobs.Put)
		api.GET("/blobs/*path", h.blobs.Describe)

		api.POST("/collections/:collection", h.records.Create)
		api.GET("/collections/:collection", h.records.Query)
		api.PATCH("/collections/:collection/:id", h.records.Update)

		api.GET("/taxonomy", h.taxonomy.List)
		api.GET("/stats", h.metrics.Summary)

		api.POST("/exports", h.exports.Create)
		api.GET("/exports/:id", h.exports.Status)
		api.GET("/exports/download/:token", h.exports.Download)
	}
	return r
}
