package recordstore

import (
	"context"
	"sort"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
)

// CollectionName 远端文档集合名
const CollectionName = "breakdownRecords"

// Store Record Store 客户端接口
// 只负责数据访问，不做重试；重试/降级策略在 datasync.Controller 中
type Store interface {
	// List 按 timestamp 倒序返回全部记录
	List(ctx context.Context) ([]domain.BreakdownRecord, error)

	// Create 写入记录，返回带 id 和 timestamp 的存储结果
	Create(ctx context.Context, record domain.BreakdownRecord) (domain.BreakdownRecord, error)

	// Update 服务端字段级合并，不返回结果（调用方已持有合并后的视图）
	Update(ctx context.Context, id string, patch domain.RecordPatch) error

	// Delete 删除记录
	Delete(ctx context.Context, id string) error
}

// sortNewestFirst 按 timestamp 倒序（稳定排序）
func sortNewestFirst(records []domain.BreakdownRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[j].Timestamp.Before(records[i].Timestamp)
	})
}
