package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"image-enhancer/internal/pkg/common"
)

// MemoryOptions 記憶體快取選項
type MemoryOptions struct {
	MaxSize         int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// MemoryStore 行程內快取，容量滿時淘汰最少使用的項目
type MemoryStore struct {
	opts  MemoryOptions
	mu    sync.Mutex
	store map[string]cacheEntry
	stats Stats
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

// cacheEntry 快取條目
type cacheEntry struct {
	value       []byte
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Stats 快取統計
type Stats struct {
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// HitRatio 命中率，尚無查詢時為 0
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewMemoryStore 創建記憶體快取並啟動清理協程
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 256
	}
	m := &MemoryStore{
		opts:  opts,
		store: make(map[string]cacheEntry),
		now:   time.Now,
		done:  make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go m.startCleanup()
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", opts.MaxSize),
		zap.Duration("存活時間", opts.TTL),
		zap.Duration("清理間隔", opts.CleanupInterval),
	)
	return m
}

// Get 獲取快取值
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.store[key]
	if !exists {
		m.stats.Misses++
		common.LogDebug("快取未命中", zap.String("鍵", key))
		return nil, false
	}

	now := m.now()
	if m.expired(entry, now) {
		delete(m.store, key)
		m.stats.Evictions++
		m.stats.Misses++
		common.LogDebug("快取已過期", zap.String("鍵", key))
		return nil, false
	}

	entry.lastAccess = now
	entry.accessCount++
	m.store[key] = entry
	m.stats.Hits++

	common.LogDebug("快取命中", zap.String("鍵", key))
	return entry.value, true
}

// Set 設置快取值
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.opts.MaxSize {
		// 先清理過期項目，仍然滿了才淘汰
		if evicted := m.cleanup(); evicted > 0 {
			common.LogDebug("快取清理執行", zap.Int("清理數量", evicted))
		}
		for len(m.store) >= m.opts.MaxSize {
			m.evictLeastUsed()
		}
	}

	now := m.now()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.store[key] = cacheEntry{
		value:      stored,
		expiresAt:  now.Add(m.opts.TTL),
		lastAccess: now,
	}

	common.LogDebug("快取已儲存", zap.String("鍵", key), zap.Int("bytes", len(value)))
	return nil
}

// expired TTL 為零表示永不過期
func (m *MemoryStore) expired(entry cacheEntry, now time.Time) bool {
	return m.opts.TTL > 0 && now.After(entry.expiresAt)
}

// startCleanup 定期清理過期快取，直到 Close
func (m *MemoryStore) startCleanup() {
	ticker := time.NewTicker(m.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// cleanup 清理過期的快取，呼叫前需持有鎖
func (m *MemoryStore) cleanup() int {
	now := m.now()
	count := 0

	for key, entry := range m.store {
		if m.expired(entry, now) {
			delete(m.store, key)
			count++
			m.stats.Evictions++
		}
	}

	if count > 0 {
		common.LogDebug("已清理過期快取",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.Evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}
	return count
}

// evictLeastUsed 淘汰存取次數最少的項目，同次數時淘汰最久未存取者
func (m *MemoryStore) evictLeastUsed() {
	var victim string
	var oldestAccess time.Time
	lowestCount := -1

	for key, entry := range m.store {
		if lowestCount < 0 ||
			entry.accessCount < lowestCount ||
			(entry.accessCount == lowestCount && entry.lastAccess.Before(oldestAccess)) {
			victim = key
			oldestAccess = entry.lastAccess
			lowestCount = entry.accessCount
		}
	}

	if lowestCount >= 0 {
		delete(m.store, victim)
		m.stats.Evictions++
		common.LogDebug("快取已淘汰", zap.String("鍵", victim))
	}
}

// Stats 獲取快取統計信息
func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.store)
	s.MaxSize = m.opts.MaxSize
	return s
}

// Close 停止清理協程並清空快取
func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.Hits),
		zap.Int64("未命中次數", m.stats.Misses),
		zap.Int64("淘汰次數", m.stats.Evictions),
	)
	return nil
}
