package services

import (
	"context"

	"livescore-service/models"
)

// MatchStore 比赛快照/事件日志存储接口
// 所有调用都可能失败或很慢, 调用方不假设同步持久化
type MatchStore interface {
	// GetAll 按 ID 升序返回所有比赛
	GetAll(ctx context.Context) ([]*models.Match, error)
	// Get 获取比赛, 不存在时返回 common.ErrNotFound
	Get(ctx context.Context, id int64) (*models.Match, error)
	// Upsert 写入完整快照
	Upsert(ctx context.Context, m *models.Match) error
	// RecentEvents 返回最近 limit 个事件 (按发生顺序)
	RecentEvents(ctx context.Context, id int64, limit int) ([]models.MatchEvent, error)
	// DeleteFinished 删除 status=FULL_TIME 且 minute > threshold 的比赛
	DeleteFinished(ctx context.Context, minuteThreshold int) (int64, error)
}
