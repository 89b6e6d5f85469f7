package health

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"image-enhancer/internal/core/cache"
	"image-enhancer/internal/infrastructure/config"
	"image-enhancer/internal/pkg/common"
)

// 路由注入 gin.Context 的鍵
const (
	ConfigKey   = "config"
	PipelineKey = "pipeline"
	CacheKey    = "cache"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Pipeline  string                 `json:"pipeline"`
	Backend   string                 `json:"backend"`
	Runtime   map[string]interface{} `json:"runtime"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, ok := c.Get(ConfigKey)
	if !ok {
		common.LogError("Configuration not found in context")
		common.WriteError(c, common.ErrInternalError, false)
		return
	}
	conf, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		common.WriteError(c, common.ErrInternalError, false)
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   conf.App.Version,
		Pipeline:  c.GetString(PipelineKey),
		Backend:   conf.Enhance.Backend,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	// 只有記憶體快取有統計
	if store, ok := c.Get(CacheKey); ok {
		if mem, ok := store.(*cache.MemoryStore); ok {
			stats := mem.Stats()
			response.Cache = &stats
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，管線尚未注入時回傳 503
func ReadinessCheck(c *gin.Context) {
	if c.GetString(PipelineKey) == "" {
		common.WriteError(c, common.ErrServiceUnavailable, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
