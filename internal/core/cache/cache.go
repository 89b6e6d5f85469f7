// Package cache 處理結果快取
package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"image-enhancer/internal/infrastructure/config"
	"image-enhancer/internal/pkg/common"
)

// Store 快取儲存介面，實作需自行處理並行存取
type Store interface {
	// Get 取得快取值，未命中或失敗都回傳 false
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set 寫入快取值
	Set(ctx context.Context, key string, value []byte) error

	// Close 釋放資源
	Close() error
}

// Key 以轉換名稱與原始上傳內容產生快取鍵
func Key(transform string, data []byte) string {
	return fmt.Sprintf("enhance:%s:%s", transform, common.HashBytes(data))
}

// New 依設定建立快取，停用時回傳 nil
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("結果快取已停用")
		return nil, nil
	}

	switch cfg.Driver {
	case config.CacheDriverMemory:
		return NewMemoryStore(MemoryOptions{
			MaxSize:         cfg.MaxSize,
			TTL:             cfg.TTL,
			CleanupInterval: cfg.CleanupInterval,
		}), nil
	case config.CacheDriverRedis:
		store, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		common.LogError("未知的快取驅動", zap.String("driver", cfg.Driver))
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
