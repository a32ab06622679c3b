package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/metrics"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/store"

	"go.uber.org/zap"
)

// DefaultKey 本地缓存的固定 key（整份记录列表的 JSON）
const DefaultKey = "coalMineBreakdownData"

// LocalCache 记录列表的本地持久化兜底
// 读写失败只记日志，不向调用方返回错误
type LocalCache struct {
	kv     store.KV
	key    string
	logger *zap.Logger
}

// NewLocalCache 创建本地缓存；key 为空时使用 DefaultKey
func NewLocalCache(kv store.KV, key string, logger *zap.Logger) *LocalCache {
	if key == "" {
		key = DefaultKey
	}
	return &LocalCache{
		kv:     kv,
		key:    key,
		logger: logger,
	}
}

// Key 返回缓存 key
func (c *LocalCache) Key() string { return c.key }

// Load 读取上次保存的记录列表；不存在或内容损坏时返回空列表
func (c *LocalCache) Load(ctx context.Context) []domain.BreakdownRecord {
	raw, err := c.kv.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			metrics.CacheFailuresTotal.WithLabelValues("load").Inc()
			c.logger.Warn("Failed to read local cache",
				zap.String("key", c.key),
				zap.Error(err),
			)
		}
		return []domain.BreakdownRecord{}
	}

	var records []domain.BreakdownRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("decode").Inc()
		c.logger.Warn("Local cache payload is corrupt, ignoring",
			zap.String("key", c.key),
			zap.Error(err),
		)
		return []domain.BreakdownRecord{}
	}
	if records == nil {
		records = []domain.BreakdownRecord{}
	}
	return records
}

// Save 覆盖保存完整记录列表（不过期）
func (c *LocalCache) Save(ctx context.Context, records []domain.BreakdownRecord) {
	if records == nil {
		records = []domain.BreakdownRecord{}
	}
	jsonData, err := json.Marshal(records)
	if err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("encode").Inc()
		c.logger.Error("Failed to marshal records for local cache", zap.Error(err))
		return
	}

	if err := c.kv.Set(ctx, c.key, string(jsonData), 0); err != nil {
		metrics.CacheFailuresTotal.WithLabelValues("save").Inc()
		c.logger.Warn("Failed to write local cache",
			zap.String("key", c.key),
			zap.Error(err),
		)
		return
	}

	c.logger.Debug("Updated local cache",
		zap.String("key", c.key),
		zap.Int("record_count", len(records)),
	)
}
