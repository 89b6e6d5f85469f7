package api

import (
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	enhanceHandler "image-enhancer/internal/api/handlers/enhance"
	filterHandler "image-enhancer/internal/api/handlers/filter"
	"image-enhancer/internal/api/handlers/health"
	"image-enhancer/internal/api/middleware"
	"image-enhancer/internal/core/cache"
	"image-enhancer/internal/core/enhance"
	"image-enhancer/internal/infrastructure/config"
	"image-enhancer/internal/pkg/common"
)

// multipart 表頭與邊界的額外空間
const multipartOverhead = 1 << 20

// Dependencies 路由所需的服務
type Dependencies struct {
	Pipeline enhance.Transformer
	Codec    enhanceHandler.Codec
	Cache    cache.Store
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("codec is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = cfg.Image.MaxSizeBytes + multipartOverhead

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "X-Cache"},
		MaxAge:        12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Image.MaxSizeBytes + multipartOverhead))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 注入設定與管線資訊供健康檢查使用
	router.Use(func(c *gin.Context) {
		c.Set(health.ConfigKey, cfg)
		c.Set(health.PipelineKey, deps.Pipeline.Name())
		if deps.Cache != nil {
			c.Set(health.CacheKey, deps.Cache)
		}
		c.Next()
	})

	router.NoRoute(func(c *gin.Context) {
		common.WriteError(c, common.ErrNotFound, false)
	})
	router.NoMethod(func(c *gin.Context) {
		common.WriteError(c, common.ErrMethodNotAllowed, false)
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	upload := enhanceHandler.NewHandler(deps.Pipeline, deps.Codec, deps.Cache, cfg.App.Debug)
	filters := filterHandler.NewHandler(upload, cfg.App.Debug)

	router.POST("/process", upload.HandleProcess)
	router.POST("/filter/:name", filters.HandleApply)
	router.GET("/filters", filters.HandleList)

	common.LogInfo("Router setup completed successfully",
		zap.String("pipeline", deps.Pipeline.Name()),
		zap.Bool("cache_enabled", deps.Cache != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_upload_bytes", cfg.Image.MaxSizeBytes),
	)

	return router, nil
}
