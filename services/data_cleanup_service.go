package services

import (
	"context"
	"time"

	"livescore-service/logger"
	"livescore-service/metrics"
	"livescore-service/models"
)

// DataCleanupService 数据清理服务
// 删除已结束 (FULL_TIME) 且比赛分钟超过阈值的比赛, 与内存中的比赛生命周期无关
type DataCleanupService struct {
	store  MatchStore
	config CleanupConfig
	log    logger.Component
}

// CleanupConfig 清理配置
type CleanupConfig struct {
	Interval        time.Duration // 定期清理间隔, 0 = 不定期执行
	MinuteThreshold int           // minute > 阈值才会被删除
}

// CleanupResult 清理结果
type CleanupResult struct {
	Status          models.MatchStatus
	MinuteThreshold int
	DeletedRows     int64
	Duration        time.Duration
}

// NewDataCleanupService 创建数据清理服务
func NewDataCleanupService(store MatchStore, config CleanupConfig) *DataCleanupService {
	return &DataCleanupService{
		store:  store,
		config: config,
		log:    logger.For("DataCleanup"),
	}
}

// ExecuteCleanup 执行一次清理
func (s *DataCleanupService) ExecuteCleanup(ctx context.Context) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{
		Status:          models.MatchStatusFullTime,
		MinuteThreshold: s.config.MinuteThreshold,
	}

	deleted, err := s.store.DeleteFinished(ctx, s.config.MinuteThreshold)
	result.Duration = time.Since(start)
	if err != nil {
		s.log.Errorf("Error cleaning up old matches: %v", err)
		return result, err
	}

	result.DeletedRows = deleted
	metrics.RetentionDeleted.Add(float64(deleted))
	s.log.Printf("Cleaned up %d finished matches (minute > %d)", deleted, s.config.MinuteThreshold)
	return result, nil
}

// Run 定期清理直到 ctx 取消; Interval 为 0 时直接返回
func (s *DataCleanupService) Run(ctx context.Context) {
	if s.config.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExecuteCleanup(ctx)
		}
	}
}
